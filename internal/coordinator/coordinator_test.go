package coordinator

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/canvasgrid/texload/internal/config"
	"github.com/canvasgrid/texload/internal/media"
	"github.com/canvasgrid/texload/internal/worker"
)

// fakeTransport is a scripted worker transport. The default script answers
// pings with pongs and ignores loads (simulating a worker that never
// responds); tests override onLoad to shape worker behaviour.
type fakeTransport struct {
	out chan worker.Message

	mu     sync.Mutex
	sent   []worker.Message
	closed bool

	// onLoad, when set, is invoked on its own goroutine per loadVideo frame.
	onLoad func(m worker.Message, post func(worker.Message))
	// mutePing suppresses pong replies (simulates a dead worker).
	mutePing bool
	// pongDelay defers the pong reply (simulates a slow handshake).
	pongDelay time.Duration

	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{out: make(chan worker.Message, 64)}
}

func (f *fakeTransport) Send(m worker.Message) {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	mute := f.mutePing
	delay := f.pongDelay
	onLoad := f.onLoad
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	switch m.Type {
	case worker.MsgPing:
		if !mute {
			if delay > 0 {
				go func() {
					time.Sleep(delay)
					f.post(worker.Message{Type: worker.MsgPong})
				}()
			} else {
				f.post(worker.Message{Type: worker.MsgPong})
			}
		}
	case worker.MsgLoadVideo:
		if onLoad != nil {
			go onLoad(m, f.post)
		}
	}
}

func (f *fakeTransport) post(m worker.Message) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	f.out <- m
}

func (f *fakeTransport) Messages() <-chan worker.Message { return f.out }

func (f *fakeTransport) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.out)
	})
}

func (f *fakeTransport) count(t worker.MsgType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.sent {
		if m.Type == t {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.WorkerTimeout = 150 * time.Millisecond
	cfg.HandshakeTimeout = 50 * time.Millisecond
	cfg.InitMaxAttempts = 2
	cfg.InitBackoffBase = 10 * time.Millisecond
	cfg.FallbackTimeout = 2 * time.Second
	cfg.ReadyPrefixSize = 64
	return cfg
}

func newTestCoordinator(t *testing.T, cfg *config.Config, ft *fakeTransport, client *http.Client) *Coordinator {
	t.Helper()
	c := New(cfg,
		WithTransportFactory(func() Transport { return ft }),
		WithHTTPClient(client),
	)
	t.Cleanup(c.DisposeAll)
	return c
}

// workerSucceeds scripts the fake worker to store payload and post videoReady
// after delay.
func workerSucceeds(c **Coordinator, payload []byte, delay time.Duration) func(worker.Message, func(worker.Message)) {
	return func(m worker.Message, post func(worker.Message)) {
		time.Sleep(delay)
		post(worker.Message{Type: worker.MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: worker.StageStarted})
		handle, err := (*c).Store().Put(payload, "video/mp4")
		if err != nil {
			post(worker.Message{Type: worker.MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: err.Error()})
			return
		}
		post(worker.Message{
			Type: worker.MsgVideoReady, BlockID: m.BlockID, Generation: m.Generation, Success: true,
			LocalURL: handle, ContentType: "video/mp4",
			Timing: &worker.Timing{Total: delay},
		})
	}
}

func videoServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWorkerSuccess(t *testing.T) {
	payload := bytes.Repeat([]byte{0xA1}, 1024)
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, payload, 20*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	res, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/video.mp4", "block-A", media.Options{Quality: media.QualityMedium})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GetLoadingMethod("block-A"); got != MethodWorker {
		t.Errorf("GetLoadingMethod = %q, want %q", got, MethodWorker)
	}
	if res.Element.URL == "" || res.Element.Size != int64(len(payload)) {
		t.Errorf("element = %+v", res.Element)
	}
	if res.Texture.Released() {
		t.Error("fresh texture must not be released")
	}
	st := c.GetWorkerStatus()
	if !st.Available || !st.Initialized {
		t.Errorf("worker status = %+v", st)
	}
}

func TestWorkerTimeoutFallsBackToMainThread(t *testing.T) {
	// The worker instance exists and is available, but this request times
	// out: the recorded method must be main-thread, not worker.
	payload := bytes.Repeat([]byte{0xB2}, 512)
	srv := videoServer(t, payload)
	ft := newFakeTransport() // pongs, never answers loads
	c := newTestCoordinator(t, testConfig(), ft, srv.Client())

	start := time.Now()
	res, err := c.LoadVideoTexture(context.Background(), srv.URL+"/video.mp4", "block-A", media.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("resolved in %v, before the worker budget elapsed", elapsed)
	}
	if got := c.GetLoadingMethod("block-A"); got != MethodMain {
		t.Errorf("GetLoadingMethod = %q, want %q (worker exists but did not produce this texture)", got, MethodMain)
	}
	if st := c.GetWorkerStatus(); !st.Available {
		t.Errorf("worker should still be available: %+v", st)
	}
	if res.Element.URL == "" {
		t.Error("element should carry the source URL")
	}
	if n := ft.count(worker.MsgCancel); n != 1 {
		t.Errorf("cancel frames sent = %d, want 1 (abandon the timed-out load)", n)
	}
}

func TestLateWorkerResultDiscarded(t *testing.T) {
	// Worker answers well after the budget; fallback already resolved. The
	// late result must be dropped and its blob revoked, not adopted.
	payload := bytes.Repeat([]byte{0xC3}, 256)
	srv := videoServer(t, payload)
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, payload, 400*time.Millisecond) // budget is 150ms
	c = newTestCoordinator(t, testConfig(), ft, srv.Client())

	_, err := c.LoadVideoTexture(context.Background(), srv.URL+"/video.mp4", "block-A", media.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.GetLoadingMethod("block-A"); got != MethodMain {
		t.Fatalf("GetLoadingMethod = %q, want %q", got, MethodMain)
	}

	// Let the late worker frame arrive and be discarded.
	time.Sleep(500 * time.Millisecond)
	if got := c.GetLoadingMethod("block-A"); got != MethodMain {
		t.Errorf("late worker result overwrote the settled method: %q", got)
	}
	if n := c.Store().Len(); n != 0 {
		t.Errorf("late result's blob not revoked: %d blobs live", n)
	}
}

func TestWorkerErrorFailsFastToFallback(t *testing.T) {
	payload := []byte("fallback video")
	srv := videoServer(t, payload)
	ft := newFakeTransport()
	ft.onLoad = func(m worker.Message, post func(worker.Message)) {
		post(worker.Message{Type: worker.MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: "fetch failed: HTTP 502"})
	}
	cfg := testConfig()
	cfg.WorkerTimeout = 5 * time.Second // generous: fail-fast must not wait it out
	c := newTestCoordinator(t, cfg, ft, srv.Client())

	start := time.Now()
	_, err := c.LoadVideoTexture(context.Background(), srv.URL+"/video.mp4", "block-A", media.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("took %v; a known-dead worker request should fall back immediately", elapsed)
	}
	if got := c.GetLoadingMethod("block-A"); got != MethodMain {
		t.Errorf("GetLoadingMethod = %q, want %q", got, MethodMain)
	}
}

func TestBothPathsFailSurfacesFallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	ft := newFakeTransport()
	ft.onLoad = func(m worker.Message, post func(worker.Message)) {
		post(worker.Message{Type: worker.MsgVideoError, BlockID: m.BlockID, Generation: m.Generation, Error: "fetch failed"})
	}
	c := newTestCoordinator(t, testConfig(), ft, srv.Client())

	_, err := c.LoadVideoTexture(context.Background(), srv.URL+"/gone.mp4", "block-A", media.Options{})
	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FallbackError", err)
	}
	if fe.WorkerErr == nil {
		t.Error("FallbackError should carry the worker-side reason")
	}
	var le *media.LoadError
	if !errors.As(err, &le) || le.Reason != media.ReasonBadResource {
		t.Errorf("terminal error should distinguish bad resource from timeout: %v", err)
	}
	if got := c.GetLoadingMethod("block-A"); got != "" {
		t.Errorf("failed load must not record a method, got %q", got)
	}
}

func TestInitFailureRoutesAllLoadsToFallback(t *testing.T) {
	payload := []byte("fallback video")
	srv := videoServer(t, payload)
	ft := newFakeTransport()
	ft.mutePing = true // handshake can never succeed
	c := newTestCoordinator(t, testConfig(), ft, srv.Client())

	for _, blockID := range []string{"block-A", "block-B"} {
		res, err := c.LoadVideoTexture(context.Background(), srv.URL+"/video.mp4", blockID, media.Options{})
		if err != nil {
			t.Fatal(err)
		}
		if got := c.GetLoadingMethod(blockID); got != MethodMain {
			t.Errorf("block %s method = %q, want %q", blockID, got, MethodMain)
		}
		_ = res
	}

	st := c.GetWorkerStatus()
	if st.Available || !st.Initialized {
		t.Errorf("status = %+v, want initialized but unavailable", st)
	}
	if st.RetryCount != 2 || st.LastError == nil {
		t.Errorf("status = %+v, want 2 burned attempts and a recorded error", st)
	}
	if n := ft.count(worker.MsgPing); n != 2 {
		t.Errorf("pings = %d, want exactly the configured attempts (no re-init per request)", n)
	}
	if n := ft.count(worker.MsgLoadVideo); n != 0 {
		t.Errorf("loads dispatched to dead worker = %d, want 0", n)
	}
}

func TestSecondLoadForSameBlockAwaitsExisting(t *testing.T) {
	payload := bytes.Repeat([]byte{0xD4}, 128)
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, payload, 80*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	var res1, res2 *Result
	var err1, err2 error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res1, err1 = c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
	}()
	time.Sleep(20 * time.Millisecond)
	go func() {
		defer wg.Done()
		res2, err2 = c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
	}()
	wg.Wait()

	if err1 != nil || err2 != nil {
		t.Fatalf("errs = %v, %v", err1, err2)
	}
	if res1 != res2 {
		t.Error("coalesced callers should share one result")
	}
	if n := ft.count(worker.MsgLoadVideo); n != 1 {
		t.Errorf("worker round trips = %d, want 1 (no duplicate dispatch)", n)
	}
}

func TestIndependentConcurrency(t *testing.T) {
	// Five blocks load concurrently; block-3's worker response is delayed
	// past the budget while the others answer fast. Only block-3 falls back.
	payload := bytes.Repeat([]byte{0xE5}, 64)
	srv := videoServer(t, payload)
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = func(m worker.Message, post func(worker.Message)) {
		delay := 20 * time.Millisecond
		if m.BlockID == "block-3" {
			delay = 600 * time.Millisecond // budget is 150ms
		}
		workerSucceeds(&c, payload, delay)(m, post)
	}
	c = newTestCoordinator(t, testConfig(), ft, srv.Client())

	blocks := []string{"block-1", "block-2", "block-3", "block-4", "block-5"}
	var wg sync.WaitGroup
	errs := make([]error, len(blocks))
	for i, b := range blocks {
		wg.Add(1)
		go func(i int, b string) {
			defer wg.Done()
			_, errs[i] = c.LoadVideoTexture(context.Background(), srv.URL+"/v.mp4", b, media.Options{})
		}(i, b)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("block %s: %v", blocks[i], err)
		}
	}
	for _, b := range blocks {
		want := MethodWorker
		if b == "block-3" {
			want = MethodMain
		}
		if got := c.GetLoadingMethod(b); got != want {
			t.Errorf("block %s method = %q, want %q", b, got, want)
		}
	}
}

func TestDisposeWhilePending(t *testing.T) {
	ft := newFakeTransport() // never answers loads
	c := newTestCoordinator(t, testConfig(), ft, &http.Client{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
		errCh <- err
	}()
	// Wait for the load frame to reach the transport, then dispose.
	waitFor(t, func() bool { return ft.count(worker.MsgLoadVideo) == 1 })
	c.Dispose("block-A")

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrDisposed) {
			t.Fatalf("err = %v, want ErrDisposed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disposed load never settled")
	}
	if got := c.GetLoadingMethod("block-A"); got != "" {
		t.Errorf("method after dispose = %q, want none", got)
	}
	if n := ft.count(worker.MsgCancel); n != 1 {
		t.Errorf("cancel frames = %d, want 1", n)
	}

	// A fresh load for the same block starts from scratch.
	var c2 = c
	ft.mu.Lock()
	ft.onLoad = workerSucceeds(&c2, []byte("v2"), 10*time.Millisecond)
	ft.mu.Unlock()
	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v2.mp4", "block-A", media.Options{}); err != nil {
		t.Fatal(err)
	}
	if got := c.GetLoadingMethod("block-A"); got != MethodWorker {
		t.Errorf("fresh load method = %q, want %q", got, MethodWorker)
	}
}

func TestDisposeIdempotent(t *testing.T) {
	payload := []byte("video")
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, payload, 5*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	res, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
	if err != nil {
		t.Fatal(err)
	}
	c.Dispose("block-A")
	if !res.Texture.Released() {
		t.Error("dispose should release the texture")
	}
	if !res.Element.Closed() {
		t.Error("dispose should close the backing element")
	}
	c.Dispose("block-A") // second call: no-op
	c.Dispose("never-loaded")
	if n := c.Store().Len(); n != 0 {
		t.Errorf("blobs after dispose = %d, want 0", n)
	}
}

func TestThumbnailDisposedOnVideoReady(t *testing.T) {
	thumbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-ish bytes"))
	}))
	defer thumbSrv.Close()

	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, []byte("video"), 5*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, thumbSrv.Client())

	thumb, err := c.LoadThumbnailTexture(context.Background(), thumbSrv.URL+"/v.jpg", "block-A")
	if err != nil {
		t.Fatal(err)
	}
	if thumb.Released() {
		t.Fatal("thumbnail released prematurely")
	}

	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{}); err != nil {
		t.Fatal(err)
	}
	if !thumb.Released() {
		t.Error("video-ready transition should dispose the thumbnail")
	}
	// Unmount cleanup racing the transition must be a no-op.
	c.Dispose("block-A")
}

func TestProgressCallback(t *testing.T) {
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = func(m worker.Message, post func(worker.Message)) {
		post(worker.Message{Type: worker.MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: worker.StageStarted})
		post(worker.Message{Type: worker.MsgVideoProgress, BlockID: m.BlockID, Generation: m.Generation, Stage: worker.StageDownloading, Progress: 0.5, BytesReceived: 50, BytesTotal: 100})
		workerSucceeds(&c, []byte("v"), 10*time.Millisecond)(m, post)
	}
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	var stages []worker.Stage
	var mu sync.Mutex
	c.RegisterProgressCallback("block-A", func(p Progress) {
		mu.Lock()
		stages = append(stages, p.Stage)
		mu.Unlock()
	})
	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	n := len(stages)
	mu.Unlock()
	if n == 0 {
		t.Error("progress callback never invoked")
	}
}

func TestGetLoadingMethodUnknownBlock(t *testing.T) {
	c := newTestCoordinator(t, testConfig(), newFakeTransport(), &http.Client{})
	if got := c.GetLoadingMethod("nope"); got != "" {
		t.Errorf("method = %q, want empty", got)
	}
}

func TestDisposeAllResetsEverything(t *testing.T) {
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, []byte("v"), 5*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{}); err != nil {
		t.Fatal(err)
	}
	c.DisposeAll()

	if got := c.GetLoadingMethod("block-A"); got != "" {
		t.Errorf("method after DisposeAll = %q", got)
	}
	st := c.GetWorkerStatus()
	if st.Initialized || st.Available || st.RetryCount != 0 {
		t.Errorf("status after DisposeAll = %+v, want zero", st)
	}
	if n := c.Store().Len(); n != 0 {
		t.Errorf("blobs after DisposeAll = %d", n)
	}
	ft.mu.Lock()
	closed := ft.closed
	ft.mu.Unlock()
	if !closed {
		t.Error("DisposeAll must terminate the worker transport")
	}
}

func TestDisposeThenImmediateReload(t *testing.T) {
	// Disposing a block while its worker load is pending and immediately
	// loading the block again must not let the abandoned load's cleanup
	// touch the fresh load: the fresh load keeps its pending registration
	// and resolves via the worker.
	payload := bytes.Repeat([]byte{0xF6}, 96)
	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, payload, 20*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, &http.Client{})

	for i := 0; i < 15; i++ {
		before := ft.count(worker.MsgLoadVideo)
		staleErr := make(chan error, 1)
		go func() {
			_, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
			staleErr <- err
		}()
		waitFor(t, func() bool { return ft.count(worker.MsgLoadVideo) > before })
		c.Dispose("block-A")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		res, err := c.LoadVideoTexture(ctx, "https://cdn.example/v.mp4", "block-A", media.Options{})
		cancel()
		if err != nil {
			t.Fatalf("iteration %d: reload after dispose = %v", i, err)
		}
		if got := c.GetLoadingMethod("block-A"); got != MethodWorker {
			t.Fatalf("iteration %d: method = %q, want %q", i, got, MethodWorker)
		}
		if res.Element.Size != int64(len(payload)) {
			t.Fatalf("iteration %d: element = %+v", i, res.Element)
		}
		select {
		case <-staleErr:
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: disposed load never settled", i)
		}
		c.Dispose("block-A")
	}
}

func TestSupersededThumbnailLeavesNoTrackerResidue(t *testing.T) {
	// The video-ready transition disposes the block's thumbnail through the
	// lifecycle gate; the gate must forget the handle afterwards or its
	// bookkeeping grows with every transition.
	thumbSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-ish bytes"))
	}))
	defer thumbSrv.Close()

	ft := newFakeTransport()
	var c *Coordinator
	ft.onLoad = workerSucceeds(&c, []byte("video"), 5*time.Millisecond)
	c = newTestCoordinator(t, testConfig(), ft, thumbSrv.Client())

	thumb, err := c.LoadThumbnailTexture(context.Background(), thumbSrv.URL+"/v.jpg", "block-A")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{}); err != nil {
		t.Fatal(err)
	}
	if !thumb.Released() {
		t.Fatal("video-ready transition should dispose the thumbnail")
	}
	if n := c.tracker.DisposedCount(); n != 0 {
		t.Errorf("tracker remembers %d handles after the transition, want 0", n)
	}
	c.Dispose("block-A")
	if n := c.tracker.DisposedCount(); n != 0 {
		t.Errorf("tracker remembers %d handles after dispose, want 0", n)
	}
}

func TestDisposeAllDuringHandshake(t *testing.T) {
	// DisposeAll while the worker handshake is mid-flight: the abandoned init
	// sequence must not create a replacement transport or write into the
	// freshly reset status.
	ft := newFakeTransport()
	ft.pongDelay = time.Second // pong lands long after the teardown
	cfg := testConfig()
	cfg.HandshakeTimeout = 80 * time.Millisecond

	var mu sync.Mutex
	factoryCalls := 0
	c := New(cfg,
		WithTransportFactory(func() Transport {
			mu.Lock()
			factoryCalls++
			mu.Unlock()
			return ft
		}),
		WithHTTPClient(&http.Client{}),
	)
	t.Cleanup(c.DisposeAll)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "block-A", media.Options{})
		errCh <- err
	}()
	waitFor(t, func() bool { return ft.count(worker.MsgPing) == 1 })
	c.DisposeAll()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("load across DisposeAll should not succeed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("load never settled after DisposeAll")
	}

	// Let the abandoned attempt's retry window elapse.
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	calls := factoryCalls
	mu.Unlock()
	if calls != 1 {
		t.Errorf("transport factory called %d times, want 1 (no resurrection after teardown)", calls)
	}
	st := c.GetWorkerStatus()
	if st.Initialized || st.Available || st.RetryCount != 0 || st.LastError != nil {
		t.Errorf("status after DisposeAll = %+v, want zero", st)
	}
	ft.mu.Lock()
	closed := ft.closed
	ft.mu.Unlock()
	if !closed {
		t.Error("DisposeAll must close the in-flight transport")
	}
}

func TestRejectsEmptyBlockID(t *testing.T) {
	c := newTestCoordinator(t, testConfig(), newFakeTransport(), &http.Client{})
	if _, err := c.LoadVideoTexture(context.Background(), "https://cdn.example/v.mp4", "", media.Options{}); err == nil {
		t.Error("empty blockID must be rejected")
	}
}

var waitTick = 5 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(waitTick)
	}
	t.Fatal("condition never satisfied")
}
