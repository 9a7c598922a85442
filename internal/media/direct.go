package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/safeurl"
)

// FailReason says why a direct load failed, so callers can tell a bad
// resource from a transient network problem (timeouts surface separately as
// context errors).
type FailReason string

const (
	ReasonNetwork     FailReason = "network"
	ReasonBadResource FailReason = "bad_resource"
	ReasonUnsupported FailReason = "unsupported_format"
)

// LoadError is a direct-path element failure.
type LoadError struct {
	URL    string
	Reason FailReason
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("direct load %s (%s): %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("direct load %s: %s", e.URL, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadDirect loads a video element straight off the calling goroutine: probe,
// fetch, buffer prefixSize bytes, ready. This is the fallback path when the
// worker transport is unavailable or has used up its timeout budget; the
// caller bounds it with ctx.
func LoadDirect(ctx context.Context, rawURL string, opts Options, prefixSize int64, client *http.Client) (*Element, error) {
	if client == nil {
		client = httpclient.Default()
	}
	opts = opts.Normalize()
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return nil, &LoadError{URL: rawURL, Reason: ReasonBadResource, Err: errors.New("not an http(s) URL")}
	}

	typ, err := Classify(ctx, rawURL, client)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &LoadError{URL: rawURL, Reason: ReasonBadResource, Err: err}
	}
	if !typ.IsVideo() {
		return nil, &LoadError{URL: rawURL, Reason: ReasonUnsupported, Err: fmt.Errorf("content type %q is not playable video", typ)}
	}

	release := httpclient.GlobalHostSem.Acquire(rawURL)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Reason: ReasonBadResource, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &LoadError{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &LoadError{URL: rawURL, Reason: ReasonBadResource, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}

	// "Ready to play": headers arrived and the readiness prefix is buffered
	// (or the stream ended sooner).
	prefix := make([]byte, 0, prefixSize)
	buf := make([]byte, 32<<10)
	for int64(len(prefix)) < prefixSize {
		n, err := resp.Body.Read(buf)
		prefix = append(prefix, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &LoadError{URL: rawURL, Reason: ReasonNetwork, Err: err}
		}
	}

	return &Element{
		URL:         rawURL,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
		Loop:        opts.Loop,
		Muted:       opts.Muted,
		Autoplay:    opts.Autoplay,
		prefix:      prefix,
	}, nil
}
