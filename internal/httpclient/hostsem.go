package httpclient

import (
	"net/url"
	"sync"
)

// HostSemaphore is a process-global per-host concurrency limiter. Every fetch
// path in the process (worker transport, direct loader, warming) shares the
// same semaphore for a given host, so a canvas full of blocks pointing at one
// CDN cannot thundering-herd it.
//
// Usage: acquire before sending a request, release when the response arrives.
//
//	release := GlobalHostSem.Acquire(u)
//	defer release()
type HostSemaphore struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	limit int
}

// GlobalHostSem is the shared per-host limiter. Default cap: 6 concurrent
// requests per host across the entire process, matching typical browser
// per-origin connection limits.
var GlobalHostSem = NewHostSemaphore(6)

func NewHostSemaphore(concurrency int) *HostSemaphore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &HostSemaphore{
		sems:  make(map[string]chan struct{}),
		limit: concurrency,
	}
}

// Acquire blocks until a slot is available for rawURL's origin and returns a
// release func.
func (h *HostSemaphore) Acquire(rawURL string) func() {
	sem := h.semFor(rawURL)
	sem <- struct{}{}
	return func() { <-sem }
}

func (h *HostSemaphore) semFor(rawURL string) chan struct{} {
	// Normalise: strip path/query, keep scheme+host.
	key := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		key = u.Scheme + "://" + u.Host
	}
	h.mu.Lock()
	s, ok := h.sems[key]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[key] = s
	}
	h.mu.Unlock()
	return s
}
