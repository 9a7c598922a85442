package media

import "time"

// Quality selects a CDN transcode tier. It caps resolution, compression and
// (for low/medium) clip duration; see the cdn package for the exact mapping.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// Options configures one load request. Immutable once the request is
// dispatched: the coordinator copies it by value into the transport message.
type Options struct {
	Loop     bool
	Muted    bool
	Autoplay bool
	Quality  Quality

	// Optional overrides; zero means "use the quality tier's value".
	Width              int
	Height             int
	MaxDuration        time.Duration
	CompressionQuality int // 1..100
}

// Normalize fills defaults for a zero-value Options.
func (o Options) Normalize() Options {
	if o.Quality == "" {
		o.Quality = QualityMedium
	}
	return o
}
