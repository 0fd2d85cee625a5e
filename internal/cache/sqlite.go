package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raynbowy23/Axon-City-sub002/internal/metrics"
)

// SQLite caches responses in a local database file so they survive restarts.
// Payloads are gzip-compressed; Overpass JSON shrinks by roughly 10x.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens (creating if needed) the cache database at path.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{db: db, logger: logger}, nil
}

// Get implements Cache. Expired rows are deleted on access.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT data, expires_at FROM responses WHERE key = ?", key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.CacheMisses.WithLabelValues("sqlite").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if expiresAt > 0 && time.Now().Unix() > expiresAt {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key); err != nil {
			s.logger.Warn("failed to delete expired cache entry", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("sqlite").Inc()
		return nil, false, nil
	}

	decompressed, err := gzipDecompress(data)
	if err != nil {
		// A corrupt row behaves like a miss; the next Set overwrites it.
		s.logger.Warn("failed to decompress cache entry", "key", key, "error", err)
		metrics.CacheMisses.WithLabelValues("sqlite").Inc()
		return nil, false, nil
	}
	metrics.CacheHits.WithLabelValues("sqlite").Inc()
	return decompressed, true, nil
}

// Set implements Cache.
func (s *SQLite) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	compressed, err := gzipCompress(data)
	if err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO responses (key, data, expires_at) VALUES (?, ?, ?)",
		key, compressed, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close implements Cache.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)

	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}
