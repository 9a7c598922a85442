package lifecycle

import (
	"sync"
	"testing"

	"github.com/canvasgrid/texload/internal/texture"
)

func TestMarkAndDisposeIdempotent(t *testing.T) {
	tr := NewTracker()
	tex := texture.NewImage(640, 360, make([]byte, 16))
	if !tr.MarkAndDispose(tex) {
		t.Fatal("first dispose should perform the release")
	}
	if tr.MarkAndDispose(tex) {
		t.Fatal("second dispose must be a no-op")
	}
	if !tex.Released() {
		t.Error("texture should be released")
	}
}

func TestMarkAndDisposeNil(t *testing.T) {
	tr := NewTracker()
	if tr.MarkAndDispose(nil) {
		t.Error("nil texture dispose should be a no-op")
	}
}

func TestMarkAndDisposeRacingPaths(t *testing.T) {
	// Video-ready transition, unmount cleanup, and URL-change cleanup may all
	// race to free the same thumbnail handle.
	tr := NewTracker()
	tex := texture.NewImage(640, 360, nil)
	var freed int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.MarkAndDispose(tex) {
				mu.Lock()
				freed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if freed != 1 {
		t.Errorf("handle freed %d times, want exactly 1", freed)
	}
}

func TestForgetAllowsReuse(t *testing.T) {
	tr := NewTracker()
	tex := texture.NewImage(1, 1, nil)
	tr.MarkAndDispose(tex)
	tr.Forget(tex.ID())
	// The gate no longer remembers the id; a new texture could reuse it.
	if tr.MarkAndDispose(tex) {
		t.Error("released texture must not be released twice even after Forget")
	}
}

func TestStateMachineHappyPath(t *testing.T) {
	tr := NewTracker()
	const id = "block-A"
	if got := tr.BlockState(id); got != StateNoAsset {
		t.Fatalf("initial state = %s", got)
	}
	steps := []State{StateThumbnailLoading, StateThumbnailReady, StateVideoLoading, StateVideoReady}
	for _, s := range steps {
		if err := tr.Advance(id, s); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}
	if got := tr.BlockState(id); got != StateVideoReady {
		t.Errorf("state = %s, want %s", got, StateVideoReady)
	}
}

func TestStateMachineVideoFailedKeepsThumbnailTerminal(t *testing.T) {
	tr := NewTracker()
	const id = "block-B"
	tr.Advance(id, StateThumbnailLoading)
	tr.Advance(id, StateThumbnailReady)
	tr.Advance(id, StateVideoLoading)
	if err := tr.Advance(id, StateVideoFailed); err != nil {
		t.Fatal(err)
	}
	// A retry is legal; jumping straight to ready is not.
	if err := tr.Advance(id, StateVideoReady); err == nil {
		t.Error("video_failed -> video_ready must be illegal without a fresh load")
	}
	if err := tr.Advance(id, StateVideoLoading); err != nil {
		t.Errorf("video_failed -> video_loading (retry) should be legal: %v", err)
	}
}

func TestStateMachineDisposedIsTerminal(t *testing.T) {
	tr := NewTracker()
	const id = "block-C"
	tr.Advance(id, StateVideoLoading)
	if err := tr.Advance(id, StateDisposed); err != nil {
		t.Fatal(err)
	}
	if err := tr.Advance(id, StateVideoLoading); err == nil {
		t.Error("disposed block must reject further transitions")
	}
	tr.Remove(id)
	if got := tr.BlockState(id); got != StateNoAsset {
		t.Errorf("removed block state = %s, want fresh %s", got, StateNoAsset)
	}
}

func TestIllegalTransition(t *testing.T) {
	tr := NewTracker()
	if err := tr.Advance("block-D", StateVideoReady); err == nil {
		t.Error("no_asset -> video_ready must be illegal")
	}
}
