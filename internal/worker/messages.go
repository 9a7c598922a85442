// Package worker implements the off-main-goroutine video transport: an
// isolated event loop that fetches video resources and hands back locally
// addressable blob handles, speaking exclusively through tagged messages.
package worker

import (
	"time"

	"github.com/canvasgrid/texload/internal/media"
)

// MsgType discriminates the transport protocol messages.
type MsgType string

const (
	// Coordinator → worker.
	MsgLoadVideo MsgType = "loadVideo"
	MsgPing      MsgType = "ping"
	MsgCancel    MsgType = "cancel"

	// Worker → coordinator.
	MsgPong          MsgType = "pong"
	MsgVideoProgress MsgType = "videoProgress"
	MsgVideoReady    MsgType = "videoReady"
	MsgVideoError    MsgType = "videoError"
)

// Stage is a load's progress stage, reported in videoProgress messages.
type Stage string

const (
	StageStarted        Stage = "started"
	StageMetadata       Stage = "metadata-fetched"
	StageDownloading    Stage = "downloading"
	StageCreatingHandle Stage = "creating-local-handle"
	StageCompleted      Stage = "completed"
)

// Timing reports how a completed load spent its time.
type Timing struct {
	Metadata time.Duration `json:"metadata"`
	Download time.Duration `json:"download"`
	Total    time.Duration `json:"total"`
}

// Message is one transport protocol frame. Every frame that concerns a load
// carries the originating BlockID so the coordinator can route it; frames for
// blocks with no pending entry are late and get discarded there.
type Message struct {
	Type    MsgType `json:"type"`
	BlockID string  `json:"blockId,omitempty"`

	// Generation correlates a load's frames when the same block is loaded
	// again after a disposal: a cancel only applies to the load generation it
	// names, and the coordinator drops frames whose generation does not match
	// the wait it has registered.
	Generation uint64 `json:"generation,omitempty"`

	// loadVideo fields.
	VideoURL string        `json:"videoUrl,omitempty"`
	Options  media.Options `json:"options,omitempty"`

	// videoProgress fields.
	Stage         Stage   `json:"stage,omitempty"`
	Progress      float64 `json:"progress,omitempty"` // 0..1
	BytesReceived int64   `json:"bytesReceived,omitempty"`
	BytesTotal    int64   `json:"bytesTotal,omitempty"` // -1 when unknown

	// videoReady fields. LocalURL is a blob store handle.
	Success     bool    `json:"success,omitempty"`
	LocalURL    string  `json:"localUrl,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
	Timing      *Timing `json:"timing,omitempty"`

	// videoError fields.
	Error string `json:"error,omitempty"`
}
