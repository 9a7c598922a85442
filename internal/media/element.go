package media

import "fmt"

// Element is the Go rendition of a ready-to-play video element: an open,
// probed media source with enough of the stream buffered to start rendering.
// A video texture wraps an Element and closes it when the texture is released.
type Element struct {
	// URL is the source this element plays: a remote URL for the direct path,
	// or a local blob handle for the worker path.
	URL         string
	ContentType string
	Size        int64 // -1 when unknown
	Loop        bool
	Muted       bool
	Autoplay    bool

	prefix []byte // buffered readiness prefix (direct path) or full payload (blob path)
	closed bool
}

// Buffered returns the bytes buffered so far.
func (e *Element) Buffered() []byte { return e.prefix }

// Close releases the element's buffers. Second close is an error so the
// disposal gate can catch double-free bugs instead of masking them.
func (e *Element) Close() error {
	if e.closed {
		return fmt.Errorf("media element %s: already closed", e.URL)
	}
	e.closed = true
	e.prefix = nil
	return nil
}

// Closed reports whether Close has been called.
func (e *Element) Closed() bool { return e.closed }

// FromBlob builds an element over a local blob handle produced by the worker
// transport. The payload is already fully fetched, so the element is ready
// immediately.
func FromBlob(handle, contentType string, payload []byte, opts Options) *Element {
	return &Element{
		URL:         handle,
		ContentType: contentType,
		Size:        int64(len(payload)),
		Loop:        opts.Loop,
		Muted:       opts.Muted,
		Autoplay:    opts.Autoplay,
		prefix:      payload,
	}
}
