// Package cdn derives transformed asset URLs for a known video CDN and warms
// the CDN-side transform cache ahead of user interaction.
//
// Both derivations are pure string work — the CDN performs the transcode
// lazily on first fetch and caches the result, which is exactly why warming
// pays off. The conventions follow the imagekit-style URL API: a `tr` query
// parameter selects the transform, and appending /ik-thumbnail.jpg to a video
// path yields a static first-frame preview.
package cdn

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/canvasgrid/texload/internal/media"
)

const thumbnailSuffix = "/ik-thumbnail.jpg"

// tier is the transform cap for one quality level.
type tier struct {
	width       int
	compression int
	maxDuration time.Duration // 0 = uncapped
}

var tiers = map[media.Quality]tier{
	media.QualityLow:    {width: 640, compression: 50, maxDuration: 15 * time.Second},
	media.QualityMedium: {width: 1280, compression: 70, maxDuration: 30 * time.Second},
	media.QualityHigh:   {width: 1920, compression: 85},
}

// IsCDNURL reports whether rawURL belongs to one of the known CDN hosts.
func IsCDNURL(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// VideoURL derives the transcoded video URL for rawURL under opts. Pure and
// deterministic. URLs off the known CDN, and URLs already carrying a
// transform, are returned unchanged — never double-transformed.
func VideoURL(rawURL string, opts media.Options, hosts []string) string {
	if !IsCDNURL(rawURL, hosts) {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("tr") {
		return rawURL
	}
	q.Set("tr", transformValue(opts.Normalize()))
	u.RawQuery = q.Encode()
	return u.String()
}

// ThumbnailURL derives the static first-frame preview URL for a CDN video.
// Already-thumbnail URLs are returned unchanged.
func ThumbnailURL(rawURL string, hosts []string) string {
	if !IsCDNURL(rawURL, hosts) {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if strings.HasSuffix(u.Path, thumbnailSuffix) {
		return rawURL
	}
	u.Path += thumbnailSuffix
	return u.String()
}

func transformValue(opts media.Options) string {
	t := tiers[opts.Quality]
	if t.width == 0 {
		t = tiers[media.QualityMedium]
	}
	width := t.width
	if opts.Width > 0 {
		width = opts.Width
	}
	compression := t.compression
	if opts.CompressionQuality > 0 {
		compression = opts.CompressionQuality
	}
	dur := t.maxDuration
	if opts.MaxDuration > 0 {
		dur = opts.MaxDuration
	}
	parts := []string{fmt.Sprintf("w-%d", width), fmt.Sprintf("q-%d", compression)}
	if opts.Height > 0 {
		parts = append(parts, fmt.Sprintf("h-%d", opts.Height))
	}
	if dur > 0 {
		parts = append(parts, fmt.Sprintf("du-%d", int(dur.Seconds())))
	}
	return strings.Join(parts, ",")
}
