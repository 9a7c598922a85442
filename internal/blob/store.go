// Package blob implements the in-memory store backing the worker transport's
// locally addressable handles. A handle looks like "blob:texload/17" and
// resolves in-process only; revoking it releases the buffered bytes.
package blob

import (
	"fmt"
	"sync"
	"time"

	"github.com/canvasgrid/texload/internal/metrics"
)

const handlePrefix = "blob:texload/"

// ErrTooLarge is returned by Put when storing the payload would exceed the
// store's byte budget even after accounting for nothing else being evictable
// (entries are only released by Revoke; the store never drops live video data).
type ErrTooLarge struct {
	Size int64
	Cap  int64
}

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("blob store: %d bytes over %d byte capacity", e.Size, e.Cap)
}

type entry struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// Store holds fetched video payloads keyed by handle.
type Store struct {
	mu       sync.Mutex
	next     uint64
	entries  map[string]entry
	bytes    int64
	maxBytes int64
}

// New creates a store with the given byte capacity.
func New(maxBytes int64) *Store {
	return &Store{
		entries:  make(map[string]entry),
		maxBytes: maxBytes,
	}
}

// Put stores data and returns its handle.
func (s *Store) Put(data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := int64(len(data))
	if s.maxBytes > 0 && s.bytes+size > s.maxBytes {
		return "", ErrTooLarge{Size: s.bytes + size, Cap: s.maxBytes}
	}
	s.next++
	h := fmt.Sprintf("%s%d", handlePrefix, s.next)
	s.entries[h] = entry{data: data, contentType: contentType, createdAt: time.Now()}
	s.bytes += size
	metrics.BlobBytes.Set(float64(s.bytes))
	return h, nil
}

// Get resolves a handle. The returned slice is shared; callers must not mutate it.
func (s *Store) Get(handle string) (data []byte, contentType string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return nil, "", false
	}
	return e.data, e.contentType, true
}

// Revoke releases a handle's bytes. Idempotent: revoking an unknown or
// already-revoked handle is a no-op and returns false.
func (s *Store) Revoke(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[handle]
	if !ok {
		return false
	}
	delete(s.entries, handle)
	s.bytes -= int64(len(e.data))
	metrics.BlobBytes.Set(float64(s.bytes))
	return true
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Bytes returns the bytes currently held.
func (s *Store) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}
