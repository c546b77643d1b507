package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// KVRepo is the process-local persistent store. Writes are last-write-wins
// per key.
type KVRepo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type SectionRepo interface {
	Upsert(ctx context.Context, s domain.Section) error
	GetByID(ctx context.Context, id int) (*domain.Section, error)
	// GetByIDs returns the known sections in the order requested. Unknown
	// identifiers are skipped.
	GetByIDs(ctx context.Context, ids []int) ([]domain.Section, error)
	ListByCourse(ctx context.Context, courseCode string) ([]domain.Section, error)
	ListCourses(ctx context.Context) ([]domain.CourseSummary, error)
	Count(ctx context.Context) (int, error)
}

type SharedRoutineRepo interface {
	Create(ctx context.Context, r *domain.StoredRoutine) error
	GetByShortCode(ctx context.Context, shortCode string) (*domain.StoredRoutine, error)
	UpdateSections(ctx context.Context, shortCode string, sectionIDs []int, at time.Time) error
	RecordAccess(ctx context.Context, shortCode string, at time.Time) error
}
