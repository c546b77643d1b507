package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent so the full
// list is replayed on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Local persistent store: routine, share link and session id.
	`CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	// Section catalog served by the share server. The payload column holds
	// the section's JSON document as published by the registrar feed.
	`CREATE TABLE IF NOT EXISTS sections (
		section_id  INTEGER PRIMARY KEY,
		course_code TEXT NOT NULL,
		payload     TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sections_course ON sections(course_code)`,

	`CREATE TABLE IF NOT EXISTS shared_routines (
		id                 TEXT PRIMARY KEY,
		short_code         TEXT NOT NULL UNIQUE,
		section_ids        TEXT NOT NULL,
		creator_session_id TEXT NOT NULL,
		access_count       INTEGER NOT NULL DEFAULT 0
		                   CHECK(access_count >= 0),
		created_at         TEXT NOT NULL,
		updated_at         TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_shared_routines_session ON shared_routines(creator_session_id)`,

	`ALTER TABLE shared_routines ADD COLUMN last_accessed_at TEXT`,
}
