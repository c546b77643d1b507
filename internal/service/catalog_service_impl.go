package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

type catalogService struct {
	source CatalogSource
}

func NewCatalogService(source CatalogSource) CatalogService {
	return &catalogService{source: source}
}

func (s *catalogService) Courses(ctx context.Context) ([]domain.CourseSummary, error) {
	courses, err := s.source.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

// UniqueCourses collapses duplicate course codes, keeping the first entry,
// and sorts by code.
func (s *catalogService) UniqueCourses(ctx context.Context) ([]domain.CourseSummary, error) {
	courses, err := s.Courses(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(courses))
	out := make([]domain.CourseSummary, 0, len(courses))
	for _, c := range courses {
		if seen[c.CourseCode] {
			continue
		}
		seen[c.CourseCode] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

// Sections returns a course's sections that pass filter. A section passes
// the faculty include list when any of its faculties is listed, and fails
// the exclude list on the same rule. Faculty matching ignores case.
func (s *catalogService) Sections(ctx context.Context, courseCode string, filter SectionFilter) ([]domain.Section, error) {
	sections, err := s.source.ListSections(ctx, courseCode)
	if err != nil {
		return nil, fmt.Errorf("listing sections of %s: %w", courseCode, err)
	}
	include := facultySet(filter.IncludeFaculties)
	exclude := facultySet(filter.ExcludeFaculties)

	out := make([]domain.Section, 0, len(sections))
	for _, sec := range sections {
		if filter.MinSeats > 0 && sec.AvailableSeats() < filter.MinSeats {
			continue
		}
		faculties := sec.FacultyList()
		if len(include) > 0 && !anyIn(faculties, include) {
			continue
		}
		if len(exclude) > 0 && anyIn(faculties, exclude) {
			continue
		}
		out = append(out, sec)
	}
	return out, nil
}

// Faculties lists the distinct faculty initials teaching a course.
func (s *catalogService) Faculties(ctx context.Context, courseCode string) ([]string, error) {
	sections, err := s.source.ListSections(ctx, courseCode)
	if err != nil {
		return nil, fmt.Errorf("listing sections of %s: %w", courseCode, err)
	}
	seen := make(map[string]bool)
	var out []string
	for _, sec := range sections {
		for _, f := range sec.FacultyList() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func facultySet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = strings.ToUpper(strings.TrimSpace(n)); n != "" {
			set[n] = true
		}
	}
	return set
}

func anyIn(faculties []string, set map[string]bool) bool {
	for _, f := range faculties {
		if set[strings.ToUpper(f)] {
			return true
		}
	}
	return false
}
