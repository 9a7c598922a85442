package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
)

// decodingTransport advertises br+gzip and decodes the response body in place.
// CDNs commonly serve brotli to browser user agents; net/http only handles
// gzip (and only when it set the header itself), so we manage both here.
type decodingTransport struct {
	rt http.RoundTripper
}

func (d *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" && req.Method != http.MethodHead {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}
	resp, err := d.rt.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	switch resp.Header.Get("Content-Encoding") {
	case "br":
		resp.Body = &decodedBody{r: brotli.NewReader(resp.Body), c: resp.Body}
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body = &decodedBody{r: gz, c: resp.Body}
	default:
		return resp, nil
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

type decodedBody struct {
	r io.Reader
	c io.Closer
}

func (b *decodedBody) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *decodedBody) Close() error {
	if rc, ok := b.r.(io.Closer); ok {
		rc.Close()
	}
	return b.c.Close()
}
