package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid absolute URL with scheme http or https.
// Load and warm requests reject anything else (file://, data:, javascript:) so a
// hostile block URL can never reach the local filesystem or run off-protocol.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return (s == "http" || s == "https") && parsed.Host != ""
}

// IsBlobHandle reports whether u is a local handle issued by the blob store.
// Blob handles resolve in-process only and never touch the network.
func IsBlobHandle(u string) bool {
	return strings.HasPrefix(u, "blob:texload/")
}
