// Package texture models the GPU texture handles the rendering layer consumes.
// A handle owns nothing network-facing: it wraps either decoded image bytes or
// a live media element whose pixel data updates as the video plays. Release is
// single-shot by contract; call sites must go through the lifecycle gate
// (lifecycle.Tracker.MarkAndDispose) rather than calling Release directly, so
// racing cleanup paths cannot double-free a handle.
package texture

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Kind distinguishes static image textures from live video textures.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

var nextID atomic.Uint64

// Texture is an opaque GPU texture handle.
type Texture struct {
	id     uint64
	kind   Kind
	width  int
	height int

	// payload holds decoded bytes for image textures; nil for video.
	payload []byte
	// source is the backing media element for video textures; closed on release.
	source io.Closer

	released bool
}

// NewImage wraps decoded image bytes in a static texture handle.
func NewImage(width, height int, pixels []byte) *Texture {
	return &Texture{
		id:      nextID.Add(1),
		kind:    KindImage,
		width:   width,
		height:  height,
		payload: pixels,
	}
}

// NewVideo wraps a live media element in a video texture handle. The texture
// takes ownership of the element and closes it on release.
func NewVideo(width, height int, source io.Closer) *Texture {
	return &Texture{
		id:     nextID.Add(1),
		kind:   KindVideo,
		width:  width,
		height: height,
		source: source,
	}
}

func (t *Texture) ID() uint64  { return t.id }
func (t *Texture) Kind() Kind  { return t.kind }
func (t *Texture) Width() int  { return t.width }
func (t *Texture) Height() int { return t.height }

// Released reports whether the handle's resources have been freed.
func (t *Texture) Released() bool { return t.released }

// Release frees the handle's resources. Not idempotent: a second call returns
// an error. The lifecycle tracker is the only intended caller.
func (t *Texture) Release() error {
	if t.released {
		return fmt.Errorf("texture %d: already released", t.id)
	}
	t.released = true
	t.payload = nil
	if t.source != nil {
		err := t.source.Close()
		t.source = nil
		return err
	}
	return nil
}
