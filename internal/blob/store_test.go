package blob

import (
	"errors"
	"strings"
	"testing"
)

func TestPutGetRevoke(t *testing.T) {
	s := New(1 << 20)
	h, err := s.Put([]byte("mp4 bytes"), "video/mp4")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(h, "blob:texload/") {
		t.Errorf("handle = %q, want blob:texload/ prefix", h)
	}
	data, ct, ok := s.Get(h)
	if !ok || string(data) != "mp4 bytes" || ct != "video/mp4" {
		t.Errorf("Get = (%q, %q, %v)", data, ct, ok)
	}
	if !s.Revoke(h) {
		t.Error("first revoke should report true")
	}
	if s.Revoke(h) {
		t.Error("second revoke must be a no-op")
	}
	if _, _, ok := s.Get(h); ok {
		t.Error("revoked handle should not resolve")
	}
	if s.Bytes() != 0 || s.Len() != 0 {
		t.Errorf("store not empty after revoke: %d bytes, %d entries", s.Bytes(), s.Len())
	}
}

func TestDistinctHandles(t *testing.T) {
	s := New(1 << 20)
	h1, _ := s.Put([]byte("a"), "video/mp4")
	h2, _ := s.Put([]byte("b"), "video/webm")
	if h1 == h2 {
		t.Errorf("handles must be unique: %q", h1)
	}
}

func TestCapacity(t *testing.T) {
	s := New(10)
	if _, err := s.Put(make([]byte, 8), "video/mp4"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Put(make([]byte, 8), "video/mp4")
	var tooLarge ErrTooLarge
	if !errors.As(err, &tooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	// Revoking makes room again.
	h, _ := s.Put([]byte("x"), "video/mp4")
	if h == "" {
		t.Error("small put should still fit")
	}
}
