package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/canvasgrid/texload/internal/blob"
	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/metrics"
	"github.com/canvasgrid/texload/internal/probecache"
	"github.com/canvasgrid/texload/internal/safeurl"
)

const (
	// loadCeiling is a safety bound per fetch so an abandoned load cannot hang
	// a goroutine forever. The coordinator's timeout/fallback policy is much
	// tighter; this only catches loads the coordinator has already given up on.
	loadCeiling = 5 * time.Minute

	progressGranularity = 64 << 10 // post a progress frame at most every 64 KiB
	outBuffer           = 64
)

// Worker is the transport's in-process rendition: one event loop goroutine
// owning an inbox, with each load fetched on its own goroutine so loads for
// different blocks never serialize. It shares no memory with the coordinator;
// everything crosses via Message values.
type Worker struct {
	in     chan Message
	out    chan Message
	store  *blob.Store
	client *http.Client
	pcache *probecache.Cache
	pcTTL  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled map[string]uint64 // blockID -> cancelled load generation

	closeOnce sync.Once
}

// New starts a worker transport. pcache may be nil.
func New(store *blob.Store, client *http.Client, pcache *probecache.Cache, pcTTL time.Duration) *Worker {
	if client == nil {
		client = httpclient.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		in:        make(chan Message, outBuffer),
		out:       make(chan Message, outBuffer),
		store:     store,
		client:    client,
		pcache:    pcache,
		pcTTL:     pcTTL,
		ctx:       ctx,
		cancel:    cancel,
		cancelled: make(map[string]uint64),
	}
	go w.loop()
	return w
}

// Send posts a message to the worker's inbox. Drops the message when the
// worker is closed; the coordinator's timeout covers that case.
func (w *Worker) Send(m Message) {
	select {
	case w.in <- m:
	case <-w.ctx.Done():
	}
}

// Messages returns the worker's outbound stream. Closed when the worker stops.
func (w *Worker) Messages() <-chan Message {
	return w.out
}

// Close terminates the event loop and abandons in-flight loads.
func (w *Worker) Close() {
	w.closeOnce.Do(w.cancel)
}

func (w *Worker) loop() {
	defer close(w.out)
	for {
		select {
		case <-w.ctx.Done():
			return
		case m := <-w.in:
			switch m.Type {
			case MsgPing:
				w.post(Message{Type: MsgPong})
			case MsgCancel:
				w.mu.Lock()
				w.cancelled[m.BlockID] = m.Generation
				w.mu.Unlock()
			case MsgLoadVideo:
				// A fresh load drops any cancel mark left by an older
				// generation; a mark never applies across generations.
				w.mu.Lock()
				if g, ok := w.cancelled[m.BlockID]; ok && g != m.Generation {
					delete(w.cancelled, m.BlockID)
				}
				w.mu.Unlock()
				go w.load(m)
			default:
				log.Printf("worker: dropping unknown message type=%q block=%s", m.Type, m.BlockID)
			}
		}
	}
}

func (w *Worker) post(m Message) {
	select {
	case w.out <- m:
	case <-w.ctx.Done():
	}
}

// isCancelled reports whether the cancel mark names exactly this load's
// generation, clearing it on a hit so the blockID can be loaded again later.
func (w *Worker) isCancelled(blockID string, gen uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if g, ok := w.cancelled[blockID]; ok && g == gen {
		delete(w.cancelled, blockID)
		return true
	}
	return false
}

// load performs one fetch. Every exit posts exactly one terminal message
// (videoReady or videoError) unless the load was cancelled, in which case the
// result is dropped and its resources released.
func (w *Worker) load(m Message) {
	defer func() {
		if r := recover(); r != nil {
			w.post(Message{Type: MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: fmt.Sprintf("internal: %v", r)})
		}
	}()

	if !safeurl.IsHTTPOrHTTPS(m.VideoURL) {
		w.post(Message{Type: MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: "not an http(s) URL: " + m.VideoURL})
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, loadCeiling)
	defer cancel()

	start := time.Now()
	w.post(Message{Type: MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: StageStarted})

	contentType, total := w.metadata(ctx, m.VideoURL)
	metaDone := time.Now()
	w.post(Message{
		Type: MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: StageMetadata,
		BytesTotal: total,
	})

	data, contentType, err := w.fetch(ctx, m, contentType, total)
	if err != nil {
		w.post(Message{Type: MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: err.Error()})
		return
	}
	if data == nil {
		// Cancelled mid-download; nothing was stored.
		return
	}
	downloadDone := time.Now()
	metrics.BytesFetched.Add(float64(len(data)))

	w.post(Message{Type: MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: StageCreatingHandle, Progress: 1, BytesReceived: int64(len(data)), BytesTotal: total})
	handle, err := w.store.Put(data, contentType)
	if err != nil {
		w.post(Message{Type: MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: err.Error()})
		return
	}
	if w.isCancelled(m.BlockID, m.Generation) {
		w.store.Revoke(handle)
		return
	}

	w.post(Message{Type: MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: StageCompleted, Progress: 1, BytesReceived: int64(len(data)), BytesTotal: total})
	w.post(Message{
		Type: MsgVideoReady, BlockID: m.BlockID, Generation: m.Generation, Success: true,
		LocalURL: handle, ContentType: contentType,
		Timing: &Timing{
			Metadata: metaDone.Sub(start),
			Download: downloadDone.Sub(metaDone),
			Total:    time.Since(start),
		},
	})
}

// metadata performs the lightweight header-only probe. Best-effort: a failed
// probe just means unknown size/type, the full fetch decides the rest.
func (w *Worker) metadata(ctx context.Context, rawURL string) (contentType string, total int64) {
	total = -1
	if r, ok := w.pcache.Fresh(rawURL, w.pcTTL); ok {
		return r.ContentType, -1
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", -1
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return "", -1
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", -1
	}
	contentType = resp.Header.Get("Content-Type")
	if s := resp.Header.Get("Content-Length"); s != "" {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			total = n
		}
	}
	if err := w.pcache.Put(rawURL, contentType, resp.StatusCode); err != nil {
		log.Printf("worker: probe cache write failed url=%q err=%v", rawURL, err)
	}
	return contentType, total
}

// fetch streams the full body, posting byte progress. Returns (nil, "", nil)
// when the load was cancelled mid-flight.
func (w *Worker) fetch(ctx context.Context, m Message, contentType string, total int64) ([]byte, string, error) {
	release := httpclient.GlobalHostSem.Acquire(m.VideoURL)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.VideoURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", m.VideoURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("fetch %s: HTTP %s", m.VideoURL, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		contentType = ct
	}
	if total < 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	var buf bytes.Buffer
	chunk := make([]byte, 32<<10)
	lastReport := 0
	for {
		if w.isCancelled(m.BlockID, m.Generation) {
			return nil, "", nil
		}
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			if buf.Len()-lastReport >= progressGranularity {
				lastReport = buf.Len()
				w.post(Message{
					Type: MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: StageDownloading,
					Progress:      fraction(int64(buf.Len()), total),
					BytesReceived: int64(buf.Len()), BytesTotal: total,
				})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("fetch %s: %w", m.VideoURL, err)
		}
	}
	return buf.Bytes(), contentType, nil
}

func fraction(received, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(received) / float64(total)
	if f > 1 {
		f = 1
	}
	return f
}
