// Package probecache persists probe and warm results across runs so fresh
// URLs are not re-probed and already-warmed CDN transforms are not re-warmed.
// Backed by sqlite; a nil *Cache is valid and caches nothing.
package probecache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Result is one cached probe outcome.
type Result struct {
	URL         string
	ContentType string
	Status      int
	CheckedAt   time.Time
}

// Cache is a sqlite-backed URL → probe result store.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("probecache: empty path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("probecache: open: %w", err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS probe_results (
		url TEXT PRIMARY KEY,
		content_type TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0,
		checked_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("probecache: create table: %w", err)
	}
	return &Cache{db: db}, nil
}

// Fresh returns the cached result for url when it is younger than ttl.
func (c *Cache) Fresh(url string, ttl time.Duration) (Result, bool) {
	if c == nil {
		return Result{}, false
	}
	var r Result
	var checked int64
	err := c.db.QueryRow(
		`SELECT url, content_type, status, checked_at FROM probe_results WHERE url = ?`, url,
	).Scan(&r.URL, &r.ContentType, &r.Status, &checked)
	if err != nil {
		return Result{}, false
	}
	r.CheckedAt = time.Unix(checked, 0)
	if time.Since(r.CheckedAt) > ttl {
		return Result{}, false
	}
	return r, true
}

// Put upserts a probe result for url.
func (c *Cache) Put(url, contentType string, status int) error {
	if c == nil {
		return nil
	}
	_, err := c.db.Exec(
		`INSERT INTO probe_results(url, content_type, status, checked_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET content_type=excluded.content_type,
		   status=excluded.status, checked_at=excluded.checked_at`,
		url, contentType, status, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("probecache: put %s: %w", url, err)
	}
	return nil
}

// Prune deletes entries older than ttl.
func (c *Cache) Prune(ttl time.Duration) (int64, error) {
	if c == nil {
		return 0, nil
	}
	res, err := c.db.Exec(`DELETE FROM probe_results WHERE checked_at < ?`, time.Now().Add(-ttl).Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}
