package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// SQLiteSharedRoutineRepo implements SharedRoutineRepo.
type SQLiteSharedRoutineRepo struct {
	db db.DBTX
}

func NewSQLiteSharedRoutineRepo(conn db.DBTX) *SQLiteSharedRoutineRepo {
	return &SQLiteSharedRoutineRepo{db: conn}
}

// Create inserts r. A taken short code yields ErrConflict.
func (r *SQLiteSharedRoutineRepo) Create(ctx context.Context, sr *domain.StoredRoutine) error {
	ids, err := encodeIDs(sr.SectionIDs)
	if err != nil {
		return err
	}
	query := `INSERT INTO shared_routines (id, short_code, section_ids, creator_session_id,
		access_count, created_at, updated_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		sr.ID,
		sr.ShortCode,
		ids,
		sr.CreatorSessionID,
		sr.AccessCount,
		formatTime(sr.CreatedAt),
		formatTime(sr.UpdatedAt),
		nullableTimeToString(sr.LastAccessedAt, time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("shared routine %s: %w", sr.ShortCode, ErrConflict)
		}
		return fmt.Errorf("inserting shared routine: %w", err)
	}
	return nil
}

func (r *SQLiteSharedRoutineRepo) GetByShortCode(ctx context.Context, shortCode string) (*domain.StoredRoutine, error) {
	query := `SELECT id, short_code, section_ids, creator_session_id, access_count,
		created_at, updated_at, last_accessed_at
		FROM shared_routines WHERE short_code = ?`
	sr, err := scanStoredRoutine(r.db.QueryRowContext(ctx, query, shortCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shared routine %s: %w", shortCode, ErrNotFound)
		}
		return nil, err
	}
	return sr, nil
}

func (r *SQLiteSharedRoutineRepo) UpdateSections(ctx context.Context, shortCode string, sectionIDs []int, at time.Time) error {
	ids, err := encodeIDs(sectionIDs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE shared_routines SET section_ids = ?, updated_at = ? WHERE short_code = ?`,
		ids, formatTime(at), shortCode)
	if err != nil {
		return fmt.Errorf("updating shared routine %s: %w", shortCode, err)
	}
	return requireAffected(res, shortCode)
}

func (r *SQLiteSharedRoutineRepo) RecordAccess(ctx context.Context, shortCode string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shared_routines SET access_count = access_count + 1, last_accessed_at = ? WHERE short_code = ?`,
		formatTime(at), shortCode)
	if err != nil {
		return fmt.Errorf("recording access to %s: %w", shortCode, err)
	}
	return requireAffected(res, shortCode)
}

func requireAffected(res sql.Result, shortCode string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shared routine %s: %w", shortCode, ErrNotFound)
	}
	return nil
}

func scanStoredRoutine(row *sql.Row) (*domain.StoredRoutine, error) {
	var (
		sr           domain.StoredRoutine
		ids          string
		createdAt    string
		updatedAt    string
		lastAccessed sql.NullString
	)
	err := row.Scan(
		&sr.ID,
		&sr.ShortCode,
		&ids,
		&sr.CreatorSessionID,
		&sr.AccessCount,
		&createdAt,
		&updatedAt,
		&lastAccessed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning shared routine: %w", err)
	}
	if sr.SectionIDs, err = decodeIDs(ids); err != nil {
		return nil, err
	}
	sr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sr.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	sr.LastAccessedAt = parseNullableTime(lastAccessed, time.RFC3339)
	return &sr, nil
}
