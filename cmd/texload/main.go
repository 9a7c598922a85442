// Command texload: fetch video textures and warm thumbnails from the terminal.
//
//	load   Resolve one video texture (worker path with main-thread fallback), report how it loaded
//	warm   Fire prewarm probes for a list of thumbnail URLs
//	probe  Classify a URL (mp4 / webm / hls / image) without downloading it
//
// Diagnostic tool around the coordinator library; set TEXLOAD_METRICS_ADDR to
// expose Prometheus metrics while a command runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/canvasgrid/texload/internal/cdn"
	"github.com/canvasgrid/texload/internal/config"
	"github.com/canvasgrid/texload/internal/coordinator"
	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/media"
	"github.com/canvasgrid/texload/internal/probecache"
	"github.com/canvasgrid/texload/internal/worker"
)

// startMetrics exposes /metrics on cfg.MetricsAddr when set.
func startMetrics(cfg *config.Config) {
	if cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("Metrics on %s/metrics", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("Metrics listener failed: %v", err)
		}
	}()
}

// openProbeCache returns nil (disabled) when no path is configured.
func openProbeCache(cfg *config.Config) *probecache.Cache {
	if cfg.ProbeCachePath == "" {
		return nil
	}
	pc, err := probecache.Open(cfg.ProbeCachePath)
	if err != nil {
		log.Printf("Probe cache %s unavailable: %v (continuing without)", cfg.ProbeCachePath, err)
		return nil
	}
	return pc
}

func parseQuality(s string) (media.Quality, error) {
	switch s {
	case "low":
		return media.QualityLow, nil
	case "", "medium":
		return media.QualityMedium, nil
	case "high":
		return media.QualityHigh, nil
	}
	return "", fmt.Errorf("unknown quality %q; use low, medium or high", s)
}

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[texload] ")

	loadCmd := flag.NewFlagSet("load", flag.ExitOnError)
	loadURL := loadCmd.String("url", "", "Video URL to load")
	loadBlock := loadCmd.String("block", "cli", "Block ID to load under")
	loadQuality := loadCmd.String("quality", "medium", "Quality tier: low, medium, high")
	loadWidth := loadCmd.Int("w", 0, "Target texture width")
	loadHeight := loadCmd.Int("h", 0, "Target texture height")
	loadLoop := loadCmd.Bool("loop", true, "Loop playback")
	loadMuted := loadCmd.Bool("muted", true, "Muted playback")
	loadProgress := loadCmd.Bool("progress", false, "Print worker progress frames")

	warmCmd := flag.NewFlagSet("warm", flag.ExitOnError)
	warmURLs := warmCmd.String("urls", "", "Comma-separated video URLs whose thumbnails to prewarm")

	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeURL := probeCmd.String("url", "", "URL to classify")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <load|warm|probe> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  load   Resolve one video texture and report the transport that produced it\n")
		fmt.Fprintf(os.Stderr, "  warm   Fire prewarm probes for thumbnail URLs\n")
		fmt.Fprintf(os.Stderr, "  probe  Classify a URL without downloading it\n")
		os.Exit(1)
	}

	cfg := config.Load()
	startMetrics(cfg)

	switch os.Args[1] {
	case "load":
		_ = loadCmd.Parse(os.Args[2:])
		if *loadURL == "" {
			log.Print("Set -url")
			os.Exit(1)
		}
		q, err := parseQuality(*loadQuality)
		if err != nil {
			log.Print(err)
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pc := openProbeCache(cfg)
		if pc != nil {
			defer pc.Close()
		}
		co := coordinator.New(cfg, coordinator.WithProbeCache(pc))
		defer co.DisposeAll()
		if *loadProgress {
			co.RegisterProgressCallback(*loadBlock, func(p coordinator.Progress) {
				if p.Stage == worker.StageDownloading && p.BytesTotal > 0 {
					log.Printf("  %s %d/%d bytes (%.0f%%)", p.Stage, p.BytesReceived, p.BytesTotal, p.Progress*100)
					return
				}
				log.Printf("  %s", p.Stage)
			})
		}

		start := time.Now()
		res, err := co.LoadVideoTexture(ctx, *loadURL, *loadBlock, media.Options{
			Quality: q,
			Width:   *loadWidth,
			Height:  *loadHeight,
			Loop:    *loadLoop,
			Muted:   *loadMuted,
		})
		if err != nil {
			log.Printf("Load failed: %v", err)
			os.Exit(1)
		}
		el := res.Element
		log.Printf("Loaded via %s in %s: %s", co.GetLoadingMethod(*loadBlock), time.Since(start).Round(time.Millisecond), el.URL)
		log.Printf("  content-type=%s size=%d buffered=%d texture=%d (%dx%d)",
			el.ContentType, el.Size, len(el.Buffered()), res.Texture.ID(), res.Texture.Width(), res.Texture.Height())
		st := co.GetWorkerStatus()
		log.Printf("  worker: available=%v initialized=%v retries=%d", st.Available, st.Initialized, st.RetryCount)

	case "warm":
		_ = warmCmd.Parse(os.Args[2:])
		parts := strings.Split(*warmURLs, ",")
		urls := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				urls = append(urls, p)
			}
		}
		if len(urls) == 0 {
			log.Print("Set -urls=https://a/v1.mp4,https://a/v2.mp4")
			os.Exit(1)
		}
		pc := openProbeCache(cfg)
		if pc != nil {
			defer pc.Close()
		}
		w := cdn.NewWarmer(httpclient.Default(), cfg.WarmCapacity, cfg.WarmRate, cfg.WarmBurst, pc, cfg.ProbeCacheTTL)
		for _, u := range urls {
			w.Warm(cdn.ThumbnailURL(u, cfg.CDNHosts))
		}
		w.Drain()
		log.Printf("Warmed %d URL(s)", len(urls))

	case "probe":
		_ = probeCmd.Parse(os.Args[2:])
		if *probeURL == "" {
			log.Print("Set -url")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		st, err := media.Classify(ctx, *probeURL, httpclient.Default())
		if err != nil {
			log.Printf("Probe failed: %v", err)
			os.Exit(1)
		}
		log.Printf("%s: %s (video=%v)", *probeURL, st, st.IsVideo())

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
