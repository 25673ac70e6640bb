// Package cache provides the TTL-bound, size-aware result cache shared by
// evidence providers and the job manager.
//
// Payloads above the compression threshold are gzipped at write time and
// tagged, so reads never have to guess at the payload shape. TTL is fixed
// when an entry is written; reads bump the hit counter but never extend
// expiry, which bounds staleness. The cache owns no background goroutines:
// Sweep is invoked by the engine or the CLI.
package cache

import (
	"bytes"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	attriberrors "attrib/internal/errors"
	"attrib/internal/logging"
	"attrib/internal/store"
)

// DefaultCompressThreshold is the payload size above which entries are
// compressed before storage.
const DefaultCompressThreshold = 50 * 1024

// Entry is a stored cache entry, returned by Inspect for diagnostics.
type Entry struct {
	Key        string
	Compressed bool
	CachedAt   time.Time
	ExpiresAt  time.Time
	TTL        time.Duration
	HitCount   int
}

// Cache is a keyed, TTL-bound result cache backed by SQLite.
type Cache struct {
	db                *store.DB
	logger            *logging.Logger
	compressThreshold int
}

// New creates the cache and ensures its table exists. threshold <= 0 selects
// DefaultCompressThreshold.
func New(db *store.DB, logger *logging.Logger, threshold int) (*Cache, error) {
	if threshold <= 0 {
		threshold = DefaultCompressThreshold
	}

	schema := `
		CREATE TABLE IF NOT EXISTS result_cache (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			compressed INTEGER NOT NULL DEFAULT 0,
			cached_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			ttl_seconds INTEGER NOT NULL,
			hit_count INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_result_cache_expires ON result_cache(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return &Cache{
		db:                db,
		logger:            logger,
		compressThreshold: threshold,
	}, nil
}

// Set stores payload under key with the given TTL, compressing payloads
// above the threshold. A ttl <= 0 writes an entry that is already expired.
func (c *Cache) Set(key string, payload []byte, ttl time.Duration) error {
	compressed := false
	stored := payload

	if len(payload) > c.compressThreshold {
		buf, err := compress(payload)
		if err != nil {
			return attriberrors.New(attriberrors.CacheFailed,
				"failed to compress cache payload", err)
		}
		stored = buf
		compressed = true
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO result_cache
			(key, payload, compressed, cached_at, expires_at, ttl_seconds, hit_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`, key, stored, boolToInt(compressed),
		now.Format(time.RFC3339Nano),
		expiresAt.Format(time.RFC3339Nano),
		int(ttl.Seconds()))
	if err != nil {
		return attriberrors.New(attriberrors.CacheFailed,
			"failed to store cache entry", err)
	}

	c.logger.Debug("Cached payload", map[string]interface{}{
		"key":        key,
		"bytes":      len(payload),
		"compressed": compressed,
	})

	return nil
}

// Get returns the payload stored under key, decompressing transparently.
// Expired entries are deleted on read and reported as a miss. A hit bumps
// hit_count without touching expires_at.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var payload []byte
	var compressedFlag int
	var expiresAt string

	err := c.db.QueryRow(`
		SELECT payload, compressed, expires_at
		FROM result_cache WHERE key = ?
	`, key).Scan(&payload, &compressedFlag, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, attriberrors.New(attriberrors.CacheFailed,
			"cache lookup failed", err)
	}

	expiresAtTime, err := time.Parse(time.RFC3339Nano, expiresAt)
	if err != nil {
		return nil, false, attriberrors.New(attriberrors.CacheFailed,
			"invalid expires_at timestamp", err)
	}

	if !time.Now().Before(expiresAtTime) {
		_, _ = c.db.Exec("DELETE FROM result_cache WHERE key = ?", key)
		return nil, false, nil
	}

	if _, err := c.db.Exec(
		"UPDATE result_cache SET hit_count = hit_count + 1 WHERE key = ?", key,
	); err != nil {
		c.logger.Warn("Failed to bump cache hit count", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}

	if compressedFlag != 0 {
		payload, err = decompress(payload)
		if err != nil {
			return nil, false, attriberrors.New(attriberrors.CacheFailed,
				"failed to decompress cache payload", err)
		}
	}

	return payload, true, nil
}

// Inspect returns entry metadata without touching hit counts.
func (c *Cache) Inspect(key string) (*Entry, error) {
	var e Entry
	var compressedFlag, ttlSeconds int
	var cachedAt, expiresAt string

	err := c.db.QueryRow(`
		SELECT key, compressed, cached_at, expires_at, ttl_seconds, hit_count
		FROM result_cache WHERE key = ?
	`, key).Scan(&e.Key, &compressedFlag, &cachedAt, &expiresAt, &ttlSeconds, &e.HitCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, attriberrors.New(attriberrors.CacheFailed,
			"cache inspect failed", err)
	}

	e.Compressed = compressedFlag != 0
	e.TTL = time.Duration(ttlSeconds) * time.Second
	if t, err := time.Parse(time.RFC3339Nano, cachedAt); err == nil {
		e.CachedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, expiresAt); err == nil {
		e.ExpiresAt = t
	}

	return &e, nil
}

// Sweep deletes expired entries and returns how many were removed. Invoked
// by an external scheduler, never by the cache itself.
func (c *Cache) Sweep() (int64, error) {
	result, err := c.db.Exec(
		"DELETE FROM result_cache WHERE expires_at <= ?",
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, attriberrors.New(attriberrors.CacheFailed,
			"cache sweep failed", err)
	}
	removed, _ := result.RowsAffected()
	if removed > 0 {
		c.logger.Debug("Swept expired cache entries", map[string]interface{}{
			"removed": removed,
		})
	}
	return removed, nil
}

// Stats returns cache usage counters for diagnostics.
func (c *Cache) Stats() (map[string]interface{}, error) {
	var entries, compressedEntries, hits int
	var sizeBytes int64

	err := c.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(compressed), 0),
		       COALESCE(SUM(hit_count), 0),
		       COALESCE(SUM(LENGTH(payload)), 0)
		FROM result_cache
	`).Scan(&entries, &compressedEntries, &hits, &sizeBytes)
	if err != nil {
		return nil, attriberrors.New(attriberrors.CacheFailed,
			"failed to read cache stats", err)
	}

	return map[string]interface{}{
		"entries":            entries,
		"compressed_entries": compressedEntries,
		"total_hits":         hits,
		"stored_bytes":       sizeBytes,
	}, nil
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(payload []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
