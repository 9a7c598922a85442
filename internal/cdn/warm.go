package cdn

import (
	"context"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/metrics"
	"github.com/canvasgrid/texload/internal/probecache"
	"github.com/canvasgrid/texload/internal/safeurl"
)

const warmProbeTimeout = 20 * time.Second

// Warmer issues best-effort probe requests against transformed CDN URLs to
// trigger server-side transcode caching before a block is actually played.
// Warming is advisory: probes never block the caller, never retry, and
// failures are swallowed. Repeat warms of the same URL are suppressed by a
// capacity-bounded remembered set (oldest evicted first) and, when a probe
// cache is attached, by fresh results from previous runs.
type Warmer struct {
	client  *http.Client
	limiter *rate.Limiter
	pcache  *probecache.Cache
	ttl     time.Duration

	mu       sync.Mutex
	warmed   map[string]struct{}
	order    []string // insertion order for eviction
	capacity int

	wg sync.WaitGroup
}

// NewWarmer builds a warmer probing at most ratePerSec requests/sec (burst
// allowed). pcache may be nil.
func NewWarmer(client *http.Client, capacity int, ratePerSec float64, burst int, pcache *probecache.Cache, ttl time.Duration) *Warmer {
	if client == nil {
		client = httpclient.Default()
	}
	if capacity < 1 {
		capacity = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Warmer{
		client:   client,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), burst),
		pcache:   pcache,
		ttl:      ttl,
		warmed:   make(map[string]struct{}),
		capacity: capacity,
	}
}

// Warm schedules a fire-and-forget probe of rawURL. Returns immediately.
func (w *Warmer) Warm(rawURL string) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return
	}
	w.mu.Lock()
	if _, done := w.warmed[rawURL]; done {
		w.mu.Unlock()
		metrics.WarmProbes.WithLabelValues("skipped").Inc()
		return
	}
	w.remember(rawURL)
	w.mu.Unlock()

	if _, fresh := w.pcache.Fresh(rawURL, w.ttl); fresh {
		metrics.WarmProbes.WithLabelValues("skipped").Inc()
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.probe(rawURL)
	}()
}

// remember inserts rawURL into the warmed set, evicting the oldest entry when
// over capacity. Caller holds w.mu.
func (w *Warmer) remember(rawURL string) {
	w.warmed[rawURL] = struct{}{}
	w.order = append(w.order, rawURL)
	for len(w.order) > w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.warmed, oldest)
	}
}

func (w *Warmer) probe(rawURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), warmProbeTimeout)
	defer cancel()
	if err := w.limiter.Wait(ctx); err != nil {
		metrics.WarmProbes.WithLabelValues("failed").Inc()
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		metrics.WarmProbes.WithLabelValues("failed").Inc()
		return
	}
	resp, err := w.client.Do(req)
	if err != nil {
		// Advisory only: log at debug verbosity and move on.
		log.Printf("cdn: warm probe failed url=%q err=%v", rawURL, err)
		metrics.WarmProbes.WithLabelValues("failed").Inc()
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	metrics.WarmProbes.WithLabelValues("sent").Inc()
	if err := w.pcache.Put(rawURL, resp.Header.Get("Content-Type"), resp.StatusCode); err != nil {
		log.Printf("cdn: probe cache write failed url=%q err=%v", rawURL, err)
	}
}

// Drain blocks until all scheduled probes finish. Test and shutdown helper.
func (w *Warmer) Drain() {
	w.wg.Wait()
}
