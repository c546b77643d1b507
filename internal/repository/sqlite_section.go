package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/alexanderramin/routinebuzz/internal/db"
	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// SQLiteSectionRepo stores catalog sections as JSON documents keyed by
// section id.
type SQLiteSectionRepo struct {
	db db.DBTX
}

func NewSQLiteSectionRepo(conn db.DBTX) *SQLiteSectionRepo {
	return &SQLiteSectionRepo{db: conn}
}

func (r *SQLiteSectionRepo) Upsert(ctx context.Context, s domain.Section) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding section %d: %w", s.SectionID, err)
	}
	query := `INSERT INTO sections (section_id, course_code, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(section_id) DO UPDATE SET
			course_code = excluded.course_code,
			payload = excluded.payload,
			updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, query, s.SectionID, s.CourseCode, string(payload), nowUTC()); err != nil {
		return fmt.Errorf("upserting section %d: %w", s.SectionID, err)
	}
	return nil
}

func (r *SQLiteSectionRepo) GetByID(ctx context.Context, id int) (*domain.Section, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM sections WHERE section_id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("section %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("reading section %d: %w", id, err)
	}
	s, err := decodeSection(payload)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSectionRepo) GetByIDs(ctx context.Context, ids []int) ([]domain.Section, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT payload FROM sections WHERE section_id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sections by id: %w", err)
	}
	found, err := scanSections(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]domain.Section, len(found))
	for _, s := range found {
		byID[s.SectionID] = s
	}
	out := make([]domain.Section, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SQLiteSectionRepo) ListByCourse(ctx context.Context, courseCode string) ([]domain.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM sections WHERE course_code = ? ORDER BY section_id`, courseCode)
	if err != nil {
		return nil, fmt.Errorf("querying sections for %s: %w", courseCode, err)
	}
	return scanSections(rows)
}

// ListCourses derives one summary per course code from the stored sections.
func (r *SQLiteSectionRepo) ListCourses(ctx context.Context) ([]domain.CourseSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT payload FROM sections ORDER BY course_code, section_id`)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	sections, err := scanSections(rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []domain.CourseSummary
	for _, s := range sections {
		if seen[s.CourseCode] {
			continue
		}
		seen[s.CourseCode] = true
		out = append(out, domain.CourseSummary{
			CourseCode:     s.CourseCode,
			CourseName:     s.CourseName,
			CourseCredit:   s.CourseCredit,
			AcademicDegree: s.AcademicDegree,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

func (r *SQLiteSectionRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sections: %w", err)
	}
	return n, nil
}

func scanSections(rows *sql.Rows) ([]domain.Section, error) {
	defer rows.Close()
	var out []domain.Section
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		s, err := decodeSection(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}
	return out, nil
}

func decodeSection(payload string) (domain.Section, error) {
	var s domain.Section
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return domain.Section{}, fmt.Errorf("decoding section payload: %w", err)
	}
	return s, nil
}
