package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/canvasgrid/texload/internal/cdn"
	"github.com/canvasgrid/texload/internal/httpclient"
	"github.com/canvasgrid/texload/internal/lifecycle"
	"github.com/canvasgrid/texload/internal/safeurl"
	"github.com/canvasgrid/texload/internal/texture"
)

const maxThumbnailBytes = 8 << 20

// LoadThumbnailTexture fetches a static preview image for blockID and
// registers it as the block's thumbnail. The thumbnail is disposed through
// the lifecycle gate when the video texture becomes ready, on Dispose, or
// when a newer thumbnail supersedes it. sourceURL may be a raw CDN video URL;
// the preview variant is derived automatically.
func (c *Coordinator) LoadThumbnailTexture(ctx context.Context, sourceURL, blockID string) (*texture.Texture, error) {
	if blockID == "" {
		return nil, errEmptyBlockID
	}
	thumbURL := cdn.ThumbnailURL(sourceURL, c.cfg.CDNHosts)
	if !safeurl.IsHTTPOrHTTPS(thumbURL) {
		return nil, fmt.Errorf("thumbnail %s: not an http(s) URL", thumbURL)
	}
	if err := c.tracker.Advance(blockID, lifecycle.StateThumbnailLoading); err != nil {
		// Video load may already be under way; the thumbnail still loads, the
		// display state just doesn't move backwards.
		log.Printf("coordinator: thumbnail state block=%s: %v", blockID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpclient.DoWithRetry(ctx, c.client, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", thumbURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("thumbnail %s: HTTP %s", thumbURL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, fmt.Errorf("thumbnail %s: %w", thumbURL, err)
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	tex := texture.NewImage(width, height, data)

	c.mu.Lock()
	prev := c.thumbs[blockID]
	c.thumbs[blockID] = &thumbRecord{tex: tex}
	c.mu.Unlock()
	if prev != nil {
		c.tracker.MarkAndDispose(prev.tex)
	}
	if err := c.tracker.Advance(blockID, lifecycle.StateThumbnailReady); err != nil {
		log.Printf("coordinator: thumbnail state block=%s: %v", blockID, err)
	}
	return tex, nil
}
