package httpclient

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 16
)

var defaultClient *http.Client

func init() {
	t := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}
	// Custom transports opt out of the automatic h2 upgrade; configure it
	// explicitly so CDN fetches multiplex over one connection.
	if err := http2.ConfigureTransport(t); err != nil {
		log.Printf("httpclient: h2 configure failed, staying on h1: %v", err)
	}
	defaultClient = &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &decodingTransport{rt: t},
	}
}

// Default returns the shared tuned HTTP client used by the worker transport,
// the direct loader, warming probes, and thumbnail fetches. Responses are
// transparently content-decoded (br, gzip).
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout sharing Default's
// transport (connection pool included).
func WithTimeout(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: defaultClient.Transport,
	}
}
