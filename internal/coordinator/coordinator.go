// Package coordinator is the single entry point for turning a remote video
// URL into a renderable texture. It owns the transport decision per request:
// the worker path gets a fixed timeout budget; on timeout or an explicit
// worker error the request falls back to the direct loader on the calling
// goroutine. The first successful response wins — a late worker result for an
// already-settled request is detected by the absence of its pending entry,
// discarded, and its resources revoked, never adopted.
package coordinator

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/canvasgrid/texload/internal/blob"
	"github.com/canvasgrid/texload/internal/cdn"
	"github.com/canvasgrid/texload/internal/config"
	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/lifecycle"
	"github.com/canvasgrid/texload/internal/media"
	"github.com/canvasgrid/texload/internal/metrics"
	"github.com/canvasgrid/texload/internal/probecache"
	"github.com/canvasgrid/texload/internal/texture"
	"github.com/canvasgrid/texload/internal/worker"
)

// Method tags which transport actually produced a resolved texture. The tag
// is written at the moment of resolution; a live worker instance whose
// request timed out is deliberately not enough to earn MethodWorker.
type Method string

const (
	MethodWorker Method = "worker"
	MethodMain   Method = "main-thread"
)

// Transport is the worker channel as the coordinator sees it. worker.Worker
// is the production implementation; tests substitute scripted ones.
type Transport interface {
	Send(worker.Message)
	Messages() <-chan worker.Message
	Close()
}

// TransportFactory builds a transport on first real use.
type TransportFactory func() Transport

// WorkerStatus is the observable worker-path state.
type WorkerStatus struct {
	Available   bool
	Initialized bool
	RetryCount  int
	LastError   error
}

// Result is a resolved load: the texture plus its backing element.
type Result struct {
	Texture *texture.Texture
	Element *media.Element
}

// Progress mirrors the worker's videoProgress frames for a registered callback.
type Progress struct {
	Stage         worker.Stage
	Progress      float64
	BytesReceived int64
	BytesTotal    int64
}

// ProgressFunc receives progress updates. At most one per block; replaced on
// re-register, cleared on load completion or disposal.
type ProgressFunc func(Progress)

// record is one resolved texture per block; superseded records are disposed.
type record struct {
	tex      *texture.Texture
	element  *media.Element
	localURL string // blob handle when via == MethodWorker
	via      Method
}

type thumbRecord struct {
	tex *texture.Texture
}

// load is an in-flight request. A second call for the same block awaits the
// existing load (coalescing policy) instead of spawning a duplicate round trip.
// gen is the load's correlation id on the worker channel: blockID alone cannot
// distinguish a disposed load from the fresh one that replaced it, so every
// frame and every registry claim is matched on (blockID, gen).
type load struct {
	blockID  string
	gen      uint64
	done     chan struct{} // closed at final settle
	abort    chan struct{} // closed by Dispose
	result   *Result
	err      error
	disposed bool
}

// workerWait is the pending-callback entry: it exists only while a request is
// waiting on the worker, and is removed at the moment of settle or timeout.
// Its absence (or a generation mismatch) is what marks a worker frame as late.
type workerWait struct {
	registeredAt time.Time
	gen          uint64
	ch           chan worker.Message // buffered 1; terminal frame
	settled      bool                // set under mu before the frame is buffered
}

// Coordinator orchestrates loads. Construct with New; one instance per
// scene/session, torn down with DisposeAll.
type Coordinator struct {
	cfg     *config.Config
	client  *http.Client
	store   *blob.Store
	tracker *lifecycle.Tracker
	pcache  *probecache.Cache
	factory TransportFactory
	loadSeq atomic.Uint64

	mu        sync.Mutex
	transport Transport
	status    WorkerStatus
	initDone  chan struct{}
	handshake chan struct{}
	inflight  map[string]*load
	pending   map[string]*workerWait
	records   map[string]*record
	thumbs    map[string]*thumbRecord
	progress  map[string]ProgressFunc
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithHTTPClient overrides the shared tuned client.
func WithHTTPClient(c *http.Client) Option {
	return func(co *Coordinator) { co.client = c }
}

// WithTransportFactory overrides how the worker transport is built. Tests use
// this to script worker behaviour.
func WithTransportFactory(f TransportFactory) Option {
	return func(co *Coordinator) { co.factory = f }
}

// WithProbeCache attaches a persistent probe cache used by the worker's
// metadata stage.
func WithProbeCache(pc *probecache.Cache) Option {
	return func(co *Coordinator) { co.pcache = pc }
}

// New builds a coordinator. Worker initialization is lazy: nothing is spawned
// until the first LoadVideoTexture call.
func New(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	c := &Coordinator{
		cfg:      cfg,
		tracker:  lifecycle.NewTracker(),
		inflight: make(map[string]*load),
		pending:  make(map[string]*workerWait),
		records:  make(map[string]*record),
		thumbs:   make(map[string]*thumbRecord),
		progress: make(map[string]ProgressFunc),
	}
	for _, o := range opts {
		o(c)
	}
	if c.client == nil {
		c.client = httpclient.Default()
	}
	c.store = blob.New(cfg.BlobMaxBytes)
	if c.factory == nil {
		c.factory = func() Transport {
			return worker.New(c.store, c.client, c.pcache, cfg.ProbeCacheTTL)
		}
	}
	return c
}

// Store exposes the blob store backing worker-path loads.
func (c *Coordinator) Store() *blob.Store { return c.store }

// Tracker exposes the lifecycle tracker for the rendering layer.
func (c *Coordinator) Tracker() *lifecycle.Tracker { return c.tracker }

// BlockState reports the display-facing state for a block.
func (c *Coordinator) BlockState(blockID string) lifecycle.State {
	return c.tracker.BlockState(blockID)
}

// GetLoadingMethod returns the transport that actually produced blockID's
// resolved texture, or "" when none is loaded. Never inferred from whether a
// worker instance happens to exist.
func (c *Coordinator) GetLoadingMethod(blockID string) Method {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.records[blockID]; ok {
		return r.via
	}
	return ""
}

// GetWorkerStatus returns a snapshot of the worker-path state.
func (c *Coordinator) GetWorkerStatus() WorkerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RegisterProgressCallback attaches fn to blockID's in-flight (or future)
// load. One active registration per block.
func (c *Coordinator) RegisterProgressCallback(blockID string, fn ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.progress, blockID)
		return
	}
	c.progress[blockID] = fn
}

// LoadVideoTexture resolves a texture for (sourceURL, blockID, opts).
// Concurrent loads for distinct blocks are independent; a second call for a
// block with a load already pending awaits that load's result.
func (c *Coordinator) LoadVideoTexture(ctx context.Context, sourceURL, blockID string, opts media.Options) (*Result, error) {
	if blockID == "" {
		return nil, &FallbackError{BlockID: blockID, Err: errEmptyBlockID}
	}
	opts = opts.Normalize()

	c.mu.Lock()
	if existing, ok := c.inflight[blockID]; ok {
		c.mu.Unlock()
		select {
		case <-existing.done:
			return existing.result, existing.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l := &load{blockID: blockID, gen: c.loadSeq.Add(1), done: make(chan struct{}), abort: make(chan struct{})}
	c.inflight[blockID] = l
	c.mu.Unlock()

	metrics.PendingLoads.Inc()
	if err := c.tracker.Advance(blockID, lifecycle.StateVideoLoading); err != nil {
		log.Printf("coordinator: state advance block=%s: %v", blockID, err)
	}

	start := time.Now()
	res, via, err := c.run(ctx, l, sourceURL, blockID, opts)
	c.settle(l, res, via, err, start)

	c.mu.Lock()
	result, lerr := l.result, l.err
	c.mu.Unlock()
	return result, lerr
}

// settle records the outcome, publishes it to coalesced waiters, and performs
// the video-ready thumbnail transition.
func (c *Coordinator) settle(l *load, res *Result, via Method, err error, start time.Time) {
	c.mu.Lock()
	disposed := l.disposed
	if err == nil && disposed {
		err = ErrDisposed
	}
	var freshOrphan *Result
	var supersededRec *record
	var supersededThumb *thumbRecord
	if err != nil && res != nil {
		// Load produced resources but the block is gone; free them after unlock.
		freshOrphan = res
		res = nil
	}
	if err == nil {
		if prev, ok := c.records[l.blockID]; ok {
			supersededRec = prev
		}
		c.records[l.blockID] = &record{
			tex:      res.Texture,
			element:  res.Element,
			localURL: localURLOf(res, via),
			via:      via,
		}
		if th, ok := c.thumbs[l.blockID]; ok {
			supersededThumb = th
			delete(c.thumbs, l.blockID)
		}
	}
	l.result, l.err = res, err
	if c.inflight[l.blockID] == l {
		// Only the current load clears its block's entries; a disposed load
		// settling late must not touch state a fresh load now owns.
		delete(c.inflight, l.blockID)
		delete(c.progress, l.blockID)
	}
	close(l.done)
	c.mu.Unlock()

	metrics.PendingLoads.Dec()
	if supersededRec != nil {
		c.disposeRecord(supersededRec)
	}
	if supersededThumb != nil {
		// Video superseded the thumbnail; the gate absorbs any racing unmount.
		c.tracker.MarkAndDispose(supersededThumb.tex)
		c.tracker.Forget(supersededThumb.tex.ID())
	}
	if freshOrphan != nil {
		c.tracker.MarkAndDispose(freshOrphan.Texture)
		c.tracker.Forget(freshOrphan.Texture.ID())
		if h := freshOrphan.Element.URL; h != "" {
			c.store.Revoke(h)
		}
	}

	switch {
	case err == nil:
		metrics.LoadsTotal.WithLabelValues(string(via)).Inc()
		metrics.LoadDuration.WithLabelValues(string(via)).Observe(time.Since(start).Seconds())
		if serr := c.tracker.Advance(l.blockID, lifecycle.StateVideoReady); serr != nil {
			log.Printf("coordinator: state advance block=%s: %v", l.blockID, serr)
		}
		log.Printf("coordinator: load ok block=%s via=%s elapsed=%s", l.blockID, via, time.Since(start).Round(time.Millisecond))
	case err == ErrDisposed:
		log.Printf("coordinator: load abandoned block=%s (disposed)", l.blockID)
	default:
		metrics.LoadFailures.Inc()
		if serr := c.tracker.Advance(l.blockID, lifecycle.StateVideoFailed); serr != nil {
			log.Printf("coordinator: state advance block=%s: %v", l.blockID, serr)
		}
		log.Printf("coordinator: load failed block=%s err=%v", l.blockID, err)
	}
}

func localURLOf(res *Result, via Method) string {
	if via == MethodWorker {
		return res.Element.URL
	}
	return ""
}

// run executes the transport policy for one load.
func (c *Coordinator) run(ctx context.Context, l *load, sourceURL, blockID string, opts media.Options) (*Result, Method, error) {
	loadURL := cdn.VideoURL(sourceURL, opts, c.cfg.CDNHosts)

	var workerErr error
	if c.ensureWorker(ctx) {
		res, err := c.tryWorker(ctx, l, loadURL, blockID, opts)
		if err == nil {
			return res, MethodWorker, nil
		}
		if err == ErrDisposed || ctx.Err() != nil {
			return nil, "", firstErr(ctx.Err(), err)
		}
		workerErr = err
		switch err.(type) {
		case *TimeoutError:
			metrics.WorkerTimeouts.Inc()
			log.Printf("coordinator: worker timeout block=%s budget=%s, falling back", blockID, c.cfg.WorkerTimeout)
		case *TransportError:
			// Known-dead request: fall back immediately instead of waiting
			// out the budget.
			metrics.WorkerErrors.Inc()
			log.Printf("coordinator: worker error block=%s err=%v, falling back", blockID, err)
		default:
			log.Printf("coordinator: worker path failed block=%s err=%v, falling back", blockID, err)
		}
	}

	res, err := c.fallback(ctx, l, loadURL, opts)
	if err != nil {
		if err == ErrDisposed || ctx.Err() != nil {
			return nil, "", firstErr(ctx.Err(), err)
		}
		return nil, "", &FallbackError{BlockID: blockID, WorkerErr: workerErr, Err: err}
	}
	return res, MethodMain, nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// tryWorker dispatches one load message and waits for its terminal frame
// within the timeout budget. The pending entry is registered before send and
// claimed by exactly one of: the dispatcher (frame arrived), this goroutine
// (timeout/abort). First claimer wins; anything after that is late. Claims are
// matched on the wait's identity, never on blockID alone, so a goroutine left
// over from a disposed load can never remove a fresh load's entry — and the
// cancel frame is sent only when this goroutine removed its own entry, so a
// stale cancel can never target a newer load.
func (c *Coordinator) tryWorker(ctx context.Context, l *load, loadURL, blockID string, opts media.Options) (*Result, error) {
	w := &workerWait{registeredAt: time.Now(), gen: l.gen, ch: make(chan worker.Message, 1)}
	c.mu.Lock()
	t := c.transport
	c.pending[blockID] = w
	c.mu.Unlock()
	if t == nil {
		c.removePending(blockID, w)
		return nil, &TransportError{BlockID: blockID, Msg: "transport gone"}
	}
	t.Send(worker.Message{Type: worker.MsgLoadVideo, BlockID: blockID, Generation: l.gen, VideoURL: loadURL, Options: opts})

	timer := time.NewTimer(c.cfg.WorkerTimeout)
	defer timer.Stop()

	select {
	case m := <-w.ch:
		return c.workerResult(m, blockID, opts)
	case <-timer.C:
		removed, settled := c.removePending(blockID, w)
		if settled {
			// The dispatcher settled this wait between timer fire and now; the
			// frame was buffered before the entry was released.
			return c.workerResult(<-w.ch, blockID, opts)
		}
		if !removed {
			// A disposal raced the timer and a fresh load owns the slot now.
			return nil, ErrDisposed
		}
		t.Send(worker.Message{Type: worker.MsgCancel, BlockID: blockID, Generation: l.gen})
		return nil, &TimeoutError{BlockID: blockID, Budget: c.cfg.WorkerTimeout}
	case <-l.abort:
		removed, settled := c.removePending(blockID, w)
		if settled {
			c.discardLate(<-w.ch)
		}
		if removed {
			t.Send(worker.Message{Type: worker.MsgCancel, BlockID: blockID, Generation: l.gen})
		}
		return nil, ErrDisposed
	case <-ctx.Done():
		removed, settled := c.removePending(blockID, w)
		if settled {
			c.discardLate(<-w.ch)
		}
		if removed {
			t.Send(worker.Message{Type: worker.MsgCancel, BlockID: blockID, Generation: l.gen})
		}
		return nil, ctx.Err()
	}
}

// removePending deletes blockID's pending entry only when it is w itself.
// removed means this call took the entry out (the worker never answered);
// settled means the dispatcher already claimed the wait and its terminal frame
// is buffered. Both false means the entry now belongs to a different load.
func (c *Coordinator) removePending(blockID string, w *workerWait) (removed, settled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.pending[blockID]; ok && cur == w {
		delete(c.pending, blockID)
		return true, false
	}
	return false, w.settled
}

// workerResult turns a terminal worker frame into a Result.
func (c *Coordinator) workerResult(m worker.Message, blockID string, opts media.Options) (*Result, error) {
	if m.Type != worker.MsgVideoReady || !m.Success {
		return nil, &TransportError{BlockID: blockID, Msg: m.Error}
	}
	data, ct, ok := c.store.Get(m.LocalURL)
	if !ok {
		return nil, &TransportError{BlockID: blockID, Msg: "local handle vanished: " + m.LocalURL}
	}
	if m.ContentType != "" {
		ct = m.ContentType
	}
	el := media.FromBlob(m.LocalURL, ct, data, opts)
	tex := texture.NewVideo(opts.Width, opts.Height, el)
	if m.Timing != nil {
		log.Printf("coordinator: worker load block=%s bytes=%d metadata=%s download=%s total=%s",
			blockID, len(data), m.Timing.Metadata.Round(time.Millisecond),
			m.Timing.Download.Round(time.Millisecond), m.Timing.Total.Round(time.Millisecond))
	}
	return &Result{Texture: tex, Element: el}, nil
}

// fallback loads directly on the calling goroutine, bounded by the fallback
// budget and aborted by disposal.
func (c *Coordinator) fallback(ctx context.Context, l *load, loadURL string, opts media.Options) (*Result, error) {
	fbCtx, cancel := context.WithTimeout(ctx, c.cfg.FallbackTimeout)
	defer cancel()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-l.abort:
			cancel()
		case <-watchDone:
		}
	}()

	el, err := media.LoadDirect(fbCtx, loadURL, opts, c.cfg.ReadyPrefixSize, c.client)
	if err != nil {
		c.mu.Lock()
		disposed := l.disposed
		c.mu.Unlock()
		if disposed {
			return nil, ErrDisposed
		}
		return nil, err
	}
	tex := texture.NewVideo(opts.Width, opts.Height, el)
	return &Result{Texture: tex, Element: el}, nil
}

// ensureWorker lazily starts worker initialization on the first call and
// reports whether the worker path is usable. A session whose handshake burned
// all attempts stays on fallback permanently.
func (c *Coordinator) ensureWorker(ctx context.Context) bool {
	c.mu.Lock()
	if c.status.Initialized {
		avail := c.status.Available
		c.mu.Unlock()
		return avail
	}
	if c.initDone == nil {
		c.initDone = make(chan struct{})
		go c.initWorker(c.initDone)
	}
	done := c.initDone
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Available
}

// initWorker performs the handshake with exponential backoff. done doubles as
// the attempt sequence's identity: every transport or status write checks that
// c.initDone is still this sequence's channel, so a handshake overlapping
// DisposeAll abandons itself instead of resurrecting a transport the teardown
// never closed or overwriting the freshly reset status.
func (c *Coordinator) initWorker(done chan struct{}) {
	defer close(done)
	var lastErr error
	for attempt := 0; attempt < c.cfg.InitMaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.cfg.InitBackoffBase << (attempt - 1))
		}
		c.mu.Lock()
		if c.initDone != done {
			c.mu.Unlock()
			log.Printf("coordinator: abandoning worker handshake (torn down mid-init)")
			return
		}
		if c.transport == nil {
			c.transport = c.factory()
			go c.dispatch(c.transport)
		}
		t := c.transport
		hs := make(chan struct{}, 1)
		c.handshake = hs
		c.mu.Unlock()

		t.Send(worker.Message{Type: worker.MsgPing})
		select {
		case <-hs:
			c.mu.Lock()
			if c.initDone != done {
				c.mu.Unlock()
				return
			}
			c.status.Available = true
			c.status.Initialized = true
			c.status.RetryCount = attempt
			c.status.LastError = nil
			c.mu.Unlock()
			log.Printf("coordinator: worker ready after %d attempt(s)", attempt+1)
			return
		case <-time.After(c.cfg.HandshakeTimeout):
			lastErr = &InitError{Attempts: attempt + 1, Err: errHandshakeTimeout}
			c.mu.Lock()
			if c.initDone != done {
				c.mu.Unlock()
				return
			}
			c.status.RetryCount = attempt + 1
			c.status.LastError = lastErr
			c.mu.Unlock()
			log.Printf("coordinator: worker handshake attempt %d/%d timed out", attempt+1, c.cfg.InitMaxAttempts)
		}
	}
	c.mu.Lock()
	if c.initDone != done {
		c.mu.Unlock()
		return
	}
	c.status.Initialized = true
	c.status.Available = false
	c.status.LastError = lastErr
	c.mu.Unlock()
	log.Printf("coordinator: worker unavailable, routing all loads to main-thread fallback")
}

// dispatch consumes the transport's message stream for the life of the
// transport and routes frames by blockID.
func (c *Coordinator) dispatch(t Transport) {
	for m := range t.Messages() {
		switch m.Type {
		case worker.MsgPong:
			c.mu.Lock()
			hs := c.handshake
			c.handshake = nil
			c.mu.Unlock()
			if hs != nil {
				hs <- struct{}{}
			}
		case worker.MsgVideoProgress:
			c.mu.Lock()
			fn := c.progress[m.BlockID]
			if w, ok := c.pending[m.BlockID]; ok && w.gen != m.Generation {
				fn = nil // stale frame from a superseded load
			}
			c.mu.Unlock()
			if fn != nil {
				fn(Progress{Stage: m.Stage, Progress: m.Progress, BytesReceived: m.BytesReceived, BytesTotal: m.BytesTotal})
			}
		case worker.MsgVideoReady, worker.MsgVideoError:
			c.routeTerminal(m)
		}
	}
}

// routeTerminal delivers a terminal frame to its pending wait, or discards it
// as late when the wait is gone or belongs to a different generation (timeout,
// abort, or disposal won the race). The wait is marked settled and its frame
// buffered under the lock, so a loser of the removePending race can rely on
// the frame being present.
func (c *Coordinator) routeTerminal(m worker.Message) {
	c.mu.Lock()
	w, ok := c.pending[m.BlockID]
	if ok && w.gen == m.Generation {
		delete(c.pending, m.BlockID)
		w.settled = true
		w.ch <- m // buffered 1; the only send this wait ever sees
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.discardLate(m)
}

// discardLate drops a superseded worker result and revokes its resources.
func (c *Coordinator) discardLate(m worker.Message) {
	if m.Type == worker.MsgVideoReady && m.LocalURL != "" {
		c.store.Revoke(m.LocalURL)
	}
	metrics.LateDiscards.Inc()
	log.Printf("coordinator: discarded late worker %s block=%s", m.Type, m.BlockID)
}

// Dispose releases everything held for blockID: its texture record, backing
// element, blob handle, thumbnail, pending wait, and progress registration.
// Idempotent; safe on blocks that never loaded. A subsequent load for the
// same blockID starts completely fresh.
func (c *Coordinator) Dispose(blockID string) {
	c.mu.Lock()
	if l, ok := c.inflight[blockID]; ok {
		if !l.disposed {
			l.disposed = true
			close(l.abort)
		}
		delete(c.inflight, blockID)
	}
	delete(c.progress, blockID)
	rec := c.records[blockID]
	delete(c.records, blockID)
	th := c.thumbs[blockID]
	delete(c.thumbs, blockID)
	c.mu.Unlock()

	if rec != nil {
		c.disposeRecord(rec)
	}
	if th != nil {
		c.tracker.MarkAndDispose(th.tex)
		c.tracker.Forget(th.tex.ID())
	}
	c.tracker.Remove(blockID)
}

func (c *Coordinator) disposeRecord(r *record) {
	c.tracker.MarkAndDispose(r.tex)
	if r.localURL != "" {
		c.store.Revoke(r.localURL)
	}
	c.tracker.Forget(r.tex.ID())
}

// DisposeAll tears the coordinator down: every record, thumbnail, pending
// wait and progress registration is cleared, the worker transport is
// terminated, and WorkerStatus resets to uninitialized. The instance stays
// usable; the next load re-initializes the worker from scratch.
func (c *Coordinator) DisposeAll() {
	c.mu.Lock()
	inflight := c.inflight
	records := c.records
	thumbs := c.thumbs
	t := c.transport
	c.inflight = make(map[string]*load)
	c.pending = make(map[string]*workerWait)
	c.records = make(map[string]*record)
	c.thumbs = make(map[string]*thumbRecord)
	c.progress = make(map[string]ProgressFunc)
	c.transport = nil
	c.status = WorkerStatus{}
	c.initDone = nil
	c.handshake = nil
	for _, l := range inflight {
		if !l.disposed {
			l.disposed = true
			close(l.abort)
		}
	}
	c.mu.Unlock()

	for _, r := range records {
		c.disposeRecord(r)
	}
	for _, th := range thumbs {
		c.tracker.MarkAndDispose(th.tex)
	}
	if t != nil {
		t.Close()
	}
	c.tracker = lifecycle.NewTracker()
	log.Printf("coordinator: disposed all state")
}

var (
	errEmptyBlockID     = errors.New("empty blockID")
	errHandshakeTimeout = errors.New("handshake timed out")
)
