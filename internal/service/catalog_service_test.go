package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/testutil"
)

func catalogFixture() CatalogService {
	return NewCatalogService(testutil.NewFakeRemote(
		testutil.NewTestSection(11, "CSE220", testutil.WithFaculties("ABC"), testutil.WithSeats(30, 30)),
		testutil.NewTestSection(12, "CSE220", testutil.WithFaculties("XYZ, ABC"), testutil.WithSeats(30, 10)),
		testutil.NewTestSection(13, "CSE220", testutil.WithSeats(40, 5)),
		testutil.NewTestSection(14, "CSE220", testutil.WithFaculties("QRS"), testutil.WithSeats(25, 24)),
		testutil.NewTestSection(21, "MAT120", testutil.WithFaculties("MNO")),
	))
}

func TestCatalogService_UniqueCoursesSorted(t *testing.T) {
	courses, err := catalogFixture().UniqueCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "CSE220", courses[0].CourseCode)
	assert.Equal(t, "MAT120", courses[1].CourseCode)
}

func TestCatalogService_SectionsFilter(t *testing.T) {
	svc := catalogFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		filter SectionFilter
		want   []int
	}{
		{"no filter", SectionFilter{}, []int{11, 12, 13, 14}},
		{"min seats", SectionFilter{MinSeats: 2}, []int{12, 13}},
		{"include faculty", SectionFilter{IncludeFaculties: []string{"abc"}}, []int{11, 12}},
		{"exclude faculty", SectionFilter{ExcludeFaculties: []string{"ABC"}}, []int{13, 14}},
		{"include and exclude", SectionFilter{IncludeFaculties: []string{"ABC"}, ExcludeFaculties: []string{"XYZ"}}, []int{11}},
		{"blank names ignored", SectionFilter{IncludeFaculties: []string{" "}}, []int{11, 12, 13, 14}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sections, err := svc.Sections(ctx, "CSE220", tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, domain.SectionIDs(sections))
		})
	}
}

func TestCatalogService_Faculties(t *testing.T) {
	faculties, err := catalogFixture().Faculties(context.Background(), "CSE220")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "QRS", "XYZ"}, faculties)
}

func TestSectionSummary_MissingFacultyIsTBA(t *testing.T) {
	s := testutil.NewTestSection(13, "CSE220", testutil.WithSectionName("07"), testutil.WithSeats(40, 5))
	assert.Equal(t, "07-TBA-35", s.Summary())
}
