package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"subweave/internal/textutil"
)

// Store is the SQLite-backed translation memory.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Stats summarizes the stored entries.
type Stats struct {
	Entries   int
	Hits      int
	Providers int
	Languages int
	Path      string
}

// Open creates or connects to the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key hashes the source text the way entries are stored.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the stored translation of text, if any, and counts the hit.
func (s *Store) Lookup(ctx context.Context, provider, targetLang, text string) (string, bool, error) {
	key := Key(text)
	var translated string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT translated FROM translations WHERE provider = ? AND target_lang = ? AND source_hash = ?`,
			provider, normalizeLang(targetLang), key,
		).Scan(&translated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup translation: %w", err)
	}
	if err := s.execWithoutResultRetry(ctx,
		`UPDATE translations SET hits = hits + 1 WHERE provider = ? AND target_lang = ? AND source_hash = ?`,
		provider, normalizeLang(targetLang), key,
	); err != nil {
		return translated, true, fmt.Errorf("record cache hit: %w", err)
	}
	return translated, true, nil
}

// Put stores or replaces the translation of text.
func (s *Store) Put(ctx context.Context, provider, targetLang, text, translated string) error {
	err := s.execWithoutResultRetry(ctx,
		`INSERT INTO translations (provider, target_lang, source_hash, source_chars, translated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, target_lang, source_hash)
		 DO UPDATE SET translated = excluded.translated, created_at = excluded.created_at`,
		provider, normalizeLang(targetLang), Key(text), textutil.Len(text), translated, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store translation: %w", err)
	}
	return nil
}

// Prune deletes entries created before cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM translations WHERE created_at < ?`, cutoff.Unix())
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("prune translations: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.Prune(ctx, time.Unix(1<<62, 0))
}

// Stats reports entry counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT COUNT(1), COALESCE(SUM(hits), 0), COUNT(DISTINCT provider), COUNT(DISTINCT target_lang) FROM translations`,
		).Scan(&stats.Entries, &stats.Hits, &stats.Providers, &stats.Languages)
	})
	if err != nil {
		return stats, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
