package media

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StreamType classifies a resource URL for loading purposes.
type StreamType string

const (
	StreamUnknown StreamType = ""
	StreamMP4     StreamType = "mp4"
	StreamWebM    StreamType = "webm"
	StreamHLS     StreamType = "hls"
	StreamImage   StreamType = "image"
)

// IsVideo reports whether t is a loadable video type.
func (t StreamType) IsVideo() bool {
	return t == StreamMP4 || t == StreamWebM || t == StreamHLS
}

const probeTimeout = 8 * time.Second

// Classify inspects a resource URL and returns a coarse stream type.
// Extension is the fast path; otherwise a one-byte Range request settles it by
// Content-Type without pulling the body.
func Classify(ctx context.Context, rawURL string, client *http.Client) (StreamType, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return StreamUnknown, err
	}
	path := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return StreamHLS, nil
	case strings.HasSuffix(path, ".mp4"), strings.HasSuffix(path, ".m4v"), strings.HasSuffix(path, ".mov"):
		return StreamMP4, nil
	case strings.HasSuffix(path, ".webm"):
		return StreamWebM, nil
	case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"),
		strings.HasSuffix(path, ".png"), strings.HasSuffix(path, ".webp"):
		return StreamImage, nil
	}
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return StreamUnknown, err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := client.Do(req)
	if err != nil {
		return StreamUnknown, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return StreamUnknown, errors.New("probe: " + resp.Status)
	}
	return typeFromContentType(resp.Header.Get("Content-Type")), nil
}

func typeFromContentType(ct string) StreamType {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "mpegurl"):
		return StreamHLS
	case strings.Contains(ct, "video/mp4"), strings.Contains(ct, "application/mp4"), strings.Contains(ct, "video/quicktime"):
		return StreamMP4
	case strings.Contains(ct, "video/webm"):
		return StreamWebM
	case strings.Contains(ct, "video/mp2t"):
		return StreamHLS
	case strings.HasPrefix(ct, "image/"):
		return StreamImage
	}
	return StreamUnknown
}
