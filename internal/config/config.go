package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds coordinator, transport, and warming settings.
// Loaded from environment; every knob has a sane default so a zero-config
// embed works. Timeouts are injected (never hardcoded at call sites) so tests
// can run the full timeout/fallback machinery in milliseconds.
type Config struct {
	// Worker path. WorkerTimeout is the system-wide budget a request gives the
	// worker transport before falling back to the direct loader. It is a
	// deliberate global tradeoff (give the worker a fair chance vs. don't make
	// users wait), not a per-request option.
	WorkerTimeout    time.Duration // TEXLOAD_WORKER_TIMEOUT, default 15s
	HandshakeTimeout time.Duration // TEXLOAD_HANDSHAKE_TIMEOUT, default 3s
	InitMaxAttempts  int           // TEXLOAD_INIT_MAX_ATTEMPTS, default 3
	InitBackoffBase  time.Duration // TEXLOAD_INIT_BACKOFF, default 500ms (doubles per attempt)

	// Direct (fallback) path.
	FallbackTimeout time.Duration // TEXLOAD_FALLBACK_TIMEOUT, default 15s
	ReadyPrefixSize int64         // TEXLOAD_READY_PREFIX_BYTES, default 256 KiB buffered before "ready to play"

	// Blob store.
	BlobMaxBytes int64 // TEXLOAD_BLOB_MAX_BYTES, default 512 MiB

	// CDN transform + warming.
	CDNHosts     []string // TEXLOAD_CDN_HOSTS comma-separated host suffixes; default ik.imagekit.io
	WarmCapacity int      // TEXLOAD_WARM_CAPACITY, default 256 URLs remembered
	WarmRate     float64  // TEXLOAD_WARM_RATE, probes/sec, default 2
	WarmBurst    int      // TEXLOAD_WARM_BURST, default 4

	// Probe cache (sqlite). Empty path disables persistence.
	ProbeCachePath string        // TEXLOAD_PROBE_CACHE
	ProbeCacheTTL  time.Duration // TEXLOAD_PROBE_CACHE_TTL, default 4h

	// Diagnostic binary only.
	MetricsAddr string // TEXLOAD_METRICS_ADDR, e.g. :9143; empty = no metrics listener
}

// Load reads config from environment and applies defaults.
func Load() *Config {
	c := &Config{
		WorkerTimeout:    getEnvDuration("TEXLOAD_WORKER_TIMEOUT", 15*time.Second),
		HandshakeTimeout: getEnvDuration("TEXLOAD_HANDSHAKE_TIMEOUT", 3*time.Second),
		InitMaxAttempts:  getEnvInt("TEXLOAD_INIT_MAX_ATTEMPTS", 3),
		InitBackoffBase:  getEnvDuration("TEXLOAD_INIT_BACKOFF", 500*time.Millisecond),
		FallbackTimeout:  getEnvDuration("TEXLOAD_FALLBACK_TIMEOUT", 15*time.Second),
		ReadyPrefixSize:  getEnvInt64("TEXLOAD_READY_PREFIX_BYTES", 256<<10),
		BlobMaxBytes:     getEnvInt64("TEXLOAD_BLOB_MAX_BYTES", 512<<20),
		CDNHosts:         getEnvList("TEXLOAD_CDN_HOSTS", []string{"ik.imagekit.io"}),
		WarmCapacity:     getEnvInt("TEXLOAD_WARM_CAPACITY", 256),
		WarmRate:         getEnvFloat("TEXLOAD_WARM_RATE", 2),
		WarmBurst:        getEnvInt("TEXLOAD_WARM_BURST", 4),
		ProbeCachePath:   os.Getenv("TEXLOAD_PROBE_CACHE"),
		ProbeCacheTTL:    getEnvDuration("TEXLOAD_PROBE_CACHE_TTL", 4*time.Hour),
		MetricsAddr:      os.Getenv("TEXLOAD_METRICS_ADDR"),
	}
	return c.withDefaults()
}

// Default returns the built-in defaults without touching the environment.
// Tests start from Default() and shrink the timeouts.
func Default() *Config {
	return (&Config{}).withDefaults()
}

func (c *Config) withDefaults() *Config {
	if c.WorkerTimeout <= 0 {
		c.WorkerTimeout = 15 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 3 * time.Second
	}
	if c.InitMaxAttempts <= 0 {
		c.InitMaxAttempts = 3
	}
	if c.InitBackoffBase <= 0 {
		c.InitBackoffBase = 500 * time.Millisecond
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = 15 * time.Second
	}
	if c.ReadyPrefixSize <= 0 {
		c.ReadyPrefixSize = 256 << 10
	}
	if c.BlobMaxBytes <= 0 {
		c.BlobMaxBytes = 512 << 20
	}
	if len(c.CDNHosts) == 0 {
		c.CDNHosts = []string{"ik.imagekit.io"}
	}
	if c.WarmCapacity <= 0 {
		c.WarmCapacity = 256
	}
	if c.WarmRate <= 0 {
		c.WarmRate = 2
	}
	if c.WarmBurst <= 0 {
		c.WarmBurst = 4
	}
	if c.ProbeCacheTTL <= 0 {
		c.ProbeCacheTTL = 4 * time.Hour
	}
	return c
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
