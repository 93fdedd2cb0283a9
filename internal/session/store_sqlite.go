package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"paras/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists sessions in a local SQLite file. It is the CLI's
// session storage and the gateway's failover target when Redis is down.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect session db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            token TEXT NOT NULL,
            profile TEXT,
            created_at DATETIME NOT NULL,
            expires_at DATETIME NOT NULL
        )`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, token, profile, created_at, expires_at FROM sessions WHERE id = ?`, id)

	var record models.SessionRecord
	var profileJSON sql.NullString
	err := row.Scan(&record.ID, &record.Token, &profileJSON, &record.CreatedAt, &record.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if profileJSON.Valid && profileJSON.String != "" {
		var profile models.Profile
		if err := json.Unmarshal([]byte(profileJSON.String), &profile); err != nil {
			return nil, fmt.Errorf("unmarshal session profile: %w", err)
		}
		record.Profile = &profile
	}

	if record.Expired(time.Now()) {
		_ = s.Delete(ctx, id)
		return nil, nil
	}
	return &record, nil
}

func (s *SQLiteStore) Put(ctx context.Context, record *models.SessionRecord) error {
	var profileJSON sql.NullString
	if record.Profile != nil {
		data, err := json.Marshal(record.Profile)
		if err != nil {
			return fmt.Errorf("marshal session profile: %w", err)
		}
		profileJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, profile, created_at, expires_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            token = excluded.token,
            profile = excluded.profile,
            expires_at = excluded.expires_at`,
		record.ID, record.Token, profileJSON, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
