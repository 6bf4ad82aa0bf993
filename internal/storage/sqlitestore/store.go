// Package sqlitestore implements TokenStore on a SQLite file shared by every
// b3notifier process of the same user. Writes made by other processes are
// detected through PRAGMA data_version.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/b3notifier/internal/common"
	"github.com/bobmcallan/b3notifier/internal/models"

	_ "modernc.org/sqlite"
)

// Storage keys, one row each.
const (
	keyAccess  = "access_token"
	keyRefresh = "refresh_token"
)

// ErrIncompleteTokens is returned when SaveTokens gets only half a pair.
var ErrIncompleteTokens = errors.New("token pair incomplete: both access and refresh are required")

// Store implements interfaces.TokenStore using SQLite.
type Store struct {
	db       *sql.DB
	logger   *common.Logger
	interval time.Duration
}

// NewStore opens (creating if needed) the session database at path.
func NewStore(logger *common.Logger, path string, watchInterval time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create session db dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if watchInterval <= 0 {
		watchInterval = time.Second
	}
	s := &Store{db: db, logger: logger, interval: watchInterval}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("path", path).Msg("Session store opened")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS session_tokens (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create session_tokens table: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when absent.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_tokens WHERE key = ?`, keyAccess).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read access token: %w", err)
	}
	return v, nil
}

func (s *Store) LoadTokens(ctx context.Context) (models.Tokens, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_tokens WHERE key IN (?, ?)`, keyAccess, keyRefresh)
	if err != nil {
		return models.Tokens{}, fmt.Errorf("read tokens: %w", err)
	}
	defer rows.Close()

	var t models.Tokens
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return models.Tokens{}, fmt.Errorf("scan token: %w", err)
		}
		switch k {
		case keyAccess:
			t.Access = v
		case keyRefresh:
			t.Refresh = v
		}
	}
	return t, rows.Err()
}

func (s *Store) SaveTokens(ctx context.Context, tokens models.Tokens) error {
	if !tokens.Complete() {
		return ErrIncompleteTokens
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token write: %w", err)
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO session_tokens (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at;
`
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, stmt, keyAccess, tokens.Access, now); err != nil {
		return fmt.Errorf("write access token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, keyRefresh, tokens.Refresh, now); err != nil {
		return fmt.Errorf("write refresh token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tokens: %w", err)
	}
	s.logger.Debug().Msg("Session tokens saved")
	return nil
}

func (s *Store) ClearTokens(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_tokens WHERE key IN (?, ?)`, keyAccess, keyRefresh); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	s.logger.Debug().Msg("Session tokens cleared")
	return nil
}

// Watch polls data_version on a dedicated connection. SQLite bumps it on that
// connection whenever any other connection, in any process, commits.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open watch connection: %w", err)
	}
	last, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer conn.Close()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				v, err := dataVersion(ctx, conn)
				if err != nil {
					if ctx.Err() == nil {
						s.logger.Warn().Err(err).Msg("Session store watch: read data_version failed")
					}
					continue
				}
				if v == last {
					continue
				}
				last = v
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
