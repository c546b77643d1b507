package service

import (
	"context"

	"github.com/alexanderramin/routinebuzz/internal/api"
	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/routine"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// CatalogSource provides course and section data.
type CatalogSource interface {
	ListCourses(ctx context.Context) ([]domain.CourseSummary, error)
	ListSections(ctx context.Context, courseCode string) ([]domain.Section, error)
	SectionsByIDs(ctx context.Context, ids []int) ([]domain.Section, error)
}

// RoutineAPI is the HTTP surface of the shared-routine endpoints.
type RoutineAPI interface {
	CreateRoutine(ctx context.Context, sectionIDs []int, sessionID string) (*api.CreateRoutineResponse, error)
	GetRoutine(ctx context.Context, shortCode string) (*domain.SharedRoutine, error)
	UpdateRoutine(ctx context.Context, shortCode string, sectionIDs []int, sessionID string) error
}

// AddResult reports the outcome of adding a section. HasConflict is only
// computed for sections that were actually added.
type AddResult struct {
	Added       bool
	HasConflict bool
}

type RoutineService interface {
	Sections() []domain.Section
	Store() *routine.Store
	SessionID() string

	Add(ctx context.Context, sectionID int) (AddResult, error)
	AddSection(section domain.Section) AddResult
	Remove(sectionID int) bool
	Clear()
	Conflicts() conflict.Set
	TotalCredits() float64

	Share(ctx context.Context) (string, error)
	ShareURL(shortCode string) string
	Open(ctx context.Context, shortCode string) (*domain.SharedRoutine, error)
	SyncState() sharesync.Snapshot
	Follow() error

	RefreshSeats(ctx context.Context) (int, error)
	ReconcileFromStorage(ctx context.Context)
	Close(ctx context.Context) error
}

// SectionFilter narrows a course's section list.
type SectionFilter struct {
	MinSeats         int
	IncludeFaculties []string
	ExcludeFaculties []string
}

type CatalogService interface {
	Courses(ctx context.Context) ([]domain.CourseSummary, error)
	UniqueCourses(ctx context.Context) ([]domain.CourseSummary, error)
	Sections(ctx context.Context, courseCode string, filter SectionFilter) ([]domain.Section, error)
	Faculties(ctx context.Context, courseCode string) ([]string, error)
}
