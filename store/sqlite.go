package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scipunch/stocknews/fetcher/types"
)

//go:embed schema.sql
var schemaSQL string

// SQLite keeps all namespaces in one table keyed by (namespace, news_id)
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens or creates the database at the given path
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at '%s' with %w", dbPath, err)
	}
	// One writer at a time, sqlite locks the file anyway
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Exists(ctx context.Context, namespace, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM news WHERE namespace = ? AND news_id = ?",
		namespace, id,
	).Scan(&one)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s/%s: %w", namespace, id, err)
	}
	return true, nil
}

func (s *SQLite) Insert(ctx context.Context, namespace string, item types.NewsItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news (namespace, news_id, date, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (namespace, news_id) DO NOTHING
	`, namespace, item.ID, item.PublishDate, item.Title, item.Content, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert %s/%s: %w", namespace, item.ID, err)
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context, namespace string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news WHERE namespace = ?", namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", namespace, err)
	}
	return n, nil
}

func (s *SQLite) Close(_ context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
