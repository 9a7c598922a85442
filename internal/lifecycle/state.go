package lifecycle

import "fmt"

// State is a block's display-facing loading state. The rendering layer decides
// what to draw from this alone: nothing, a skeleton, the thumbnail, or the
// live video.
type State string

const (
	StateNoAsset          State = "no_asset"
	StateThumbnailLoading State = "thumbnail_loading"
	StateThumbnailReady   State = "thumbnail_ready"
	StateVideoLoading     State = "video_loading" // thumbnail still shown
	StateVideoReady       State = "video_ready"   // thumbnail disposed
	StateVideoFailed      State = "video_failed"  // thumbnail remains the terminal visible state
	StateDisposed         State = "disposed"      // terminal
)

// transitions lists the legal moves. StateDisposed is reachable from anywhere.
var transitions = map[State][]State{
	StateNoAsset:          {StateThumbnailLoading, StateVideoLoading},
	StateThumbnailLoading: {StateThumbnailReady, StateVideoLoading},
	StateThumbnailReady:   {StateVideoLoading},
	StateVideoLoading:     {StateVideoReady, StateVideoFailed},
	StateVideoFailed:      {StateVideoLoading}, // a fresh load may retry after failure
	StateVideoReady:       {StateVideoLoading}, // URL change restarts the cycle
	StateDisposed:         {},
}

// BlockState returns the current state for blockID (StateNoAsset when unseen).
func (tr *Tracker) BlockState(blockID string) State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	s, ok := tr.states[blockID]
	if !ok {
		return StateNoAsset
	}
	return s
}

// Advance moves blockID to next, enforcing the state machine. Disposal is
// always legal; a disposed block stays disposed.
func (tr *Tracker) Advance(blockID string, next State) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	cur, ok := tr.states[blockID]
	if !ok {
		cur = StateNoAsset
	}
	if cur == StateDisposed {
		return fmt.Errorf("lifecycle: block %s is disposed", blockID)
	}
	if next == StateDisposed {
		tr.states[blockID] = next
		return nil
	}
	for _, legal := range transitions[cur] {
		if legal == next {
			tr.states[blockID] = next
			return nil
		}
	}
	return fmt.Errorf("lifecycle: block %s: illegal transition %s -> %s", blockID, cur, next)
}

// Remove drops all state for blockID so a later re-add starts from NO_ASSET.
func (tr *Tracker) Remove(blockID string) {
	tr.mu.Lock()
	delete(tr.states, blockID)
	tr.mu.Unlock()
}
