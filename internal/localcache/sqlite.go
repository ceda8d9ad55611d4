package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key     TEXT PRIMARY KEY,
	value   BLOB NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	origin  TEXT NOT NULL
)`

// DefaultPollInterval is how often SQLiteMedium checks for writes by other processes.
const DefaultPollInterval = 500 * time.Millisecond

// SQLiteMedium keeps values in a single-file database. Processes sharing the
// file see each other's writes by polling row versions.
type SQLiteMedium struct {
	db       *sql.DB
	origin   string
	interval time.Duration
	log      *slog.Logger
}

func OpenSQLiteMedium(path string, logger *slog.Logger) (*SQLiteMedium, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteMedium{
		db:       db,
		origin:   uuid.NewString(),
		interval: DefaultPollInterval,
		log:      logger.With("component", "localcache_sqlite"),
	}, nil
}

// SetPollInterval changes the polling period of watchers started afterwards.
func (m *SQLiteMedium) SetPollInterval(d time.Duration) {
	m.interval = d
}

func (m *SQLiteMedium) Close() error {
	return m.db.Close()
}

func (m *SQLiteMedium) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte

	err := m.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading key: %w", err)
	}

	return payload, nil
}

func (m *SQLiteMedium) Store(ctx context.Context, key string, payload []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, version, origin) VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = kv.version + 1,
			origin = excluded.origin`,
		key, payload, m.origin,
	)
	if err != nil {
		return fmt.Errorf("storing key: %w", err)
	}

	return nil
}

// Watch polls for rows whose version moved since the last look and that were
// last written by another medium.
func (m *SQLiteMedium) Watch(ctx context.Context) (<-chan Change, error) {
	seen, err := m.versions(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Change)

	go func() {
		defer close(out)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			changes, err := m.poll(ctx, seen)
			if err != nil {
				if ctx.Err() == nil {
					m.log.Warn("polling cache database", "error", err)
				}

				continue
			}

			for _, ch := range changes {
				select {
				case out <- ch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (m *SQLiteMedium) versions(ctx context.Context) (map[string]int64, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key, version FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("reading versions: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]int64)

	for rows.Next() {
		var (
			key     string
			version int64
		)

		if err := rows.Scan(&key, &version); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}

		seen[key] = version
	}

	return seen, rows.Err()
}

func (m *SQLiteMedium) poll(ctx context.Context, seen map[string]int64) ([]Change, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT key, value, version, origin FROM kv`)
	if err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	defer rows.Close()

	var changes []Change

	for rows.Next() {
		var (
			key, origin string
			payload     []byte
			version     int64
		)

		if err := rows.Scan(&key, &payload, &version, &origin); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if seen[key] == version {
			continue
		}

		seen[key] = version

		if origin != m.origin {
			changes = append(changes, Change{Key: key, Payload: payload})
		}
	}

	return changes, rows.Err()
}
