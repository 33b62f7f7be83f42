package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool to prevent prepared statement issues
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(1 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS spaces (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			default_content_type TEXT NOT NULL DEFAULT 'text',
			project_id UUID NOT NULL,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			content_type TEXT NOT NULL DEFAULT 'text',
			content_json JSONB,
			text_content TEXT NOT NULL DEFAULT '',
			drawing_data JSONB,
			mindmap_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS space_versions (
			id UUID PRIMARY KEY,
			space_id UUID NOT NULL REFERENCES spaces(id),
			content_type TEXT NOT NULL,
			content_json JSONB,
			text_content TEXT NOT NULL DEFAULT '',
			drawing_data JSONB,
			mindmap_data JSONB,
			is_major_version BOOLEAN NOT NULL DEFAULT FALSE,
			edit_summary TEXT NOT NULL,
			author_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_space_versions_space_created
			ON space_versions (space_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
