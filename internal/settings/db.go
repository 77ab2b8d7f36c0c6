package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"open-launcher/internal/launcherr"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	identity   TEXT NOT NULL,
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (identity, field)
)`

type row struct {
	Field string `db:"field"`
	Value string `db:"value"`
}

// DBStore keeps settings in a per-user SQLite database.
type DBStore struct {
	db      *sqlx.DB
	session overlay
}

func OpenDBStore(path string) (*DBStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate settings db: %w", err)
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Load(ctx context.Context, identity string) (Settings, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		`SELECT field, value FROM settings WHERE identity = ?`, identity)
	if err != nil {
		return Settings{}, launcherr.Wrap(launcherr.CodeSettingsLoad, "load settings", err)
	}
	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Field] = r.Value
	}
	s.session.apply(identity, values)
	return decode(values)
}

func (s *DBStore) SetValue(ctx context.Context, keyName, field, value string, persistent bool) error {
	if !persistent {
		s.session.set(keyName, field, value)
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (identity, field, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (identity, field) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		keyName, field, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write setting %s: %w", field, err)
	}
	s.session.clear(keyName, field)
	return nil
}

func (s *DBStore) AppendValue(ctx context.Context, keyName, field, suffix string) (string, error) {
	var v string
	err := s.db.GetContext(ctx, &v, `
INSERT INTO settings (identity, field, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (identity, field) DO UPDATE SET value = settings.value || excluded.value, updated_at = excluded.updated_at
RETURNING value`,
		keyName, field, suffix, time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("append setting %s: %w", field, err)
	}
	s.session.clear(keyName, field)
	return v, nil
}

func (s *DBStore) Close() error { return s.db.Close() }
