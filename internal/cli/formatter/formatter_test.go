package formatter

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
	"github.com/alexanderramin/routinebuzz/internal/testutil"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := stripANSI(RenderTable([]string{"A", "Long"}, [][]string{{"xyz", "1"}, {"x"}}))

	assert.Equal(t, "A    Long\n───  ────\nxyz  1\nx    \n", out)
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"a"}}))
}

func TestBuildGrid_PlacesClassesAndLabSpans(t *testing.T) {
	cse := testutil.NewTestSection(101, "CSE110",
		testutil.WithClass(domain.Sunday, "08:00:00"),
		testutil.WithLab(domain.Thursday, "09:30:00"),
	)
	mat := testutil.NewTestSection(201, "MAT110", testutil.WithClass(domain.Monday, "11:00:00"))

	g := BuildGrid([]domain.Section{cse, mat}, conflict.Set{}, nil)

	assert.Equal(t, []domain.Weekday{domain.Sunday, domain.Monday, domain.Thursday}, g.Days)
	require.Len(t, g.Cell(domain.Sunday, "08:00"), 1)
	assert.Equal(t, "CSE110-1", g.Cell(domain.Sunday, "08:00")[0].Label)

	first := g.Cell(domain.Thursday, "09:30")
	second := g.Cell(domain.Thursday, "11:00")
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, domain.MeetingLab, first[0].Kind)
	assert.Equal(t, "CSE110L-1", second[0].Label)
	assert.Empty(t, g.Cell(domain.Thursday, "12:30"))
	assert.Empty(t, g.OffGrid)
}

func TestBuildGrid_FlagsConflicts(t *testing.T) {
	a := testutil.NewTestSection(1, "CSE110", testutil.WithClass(domain.Sunday, "08:00:00"))
	b := testutil.NewTestSection(2, "PHY111", testutil.WithLab(domain.Sunday, "08:00:00"))
	c := testutil.NewTestSection(3, "MAT110", testutil.WithClass(domain.Monday, "08:00:00"))
	sections := []domain.Section{a, b, c}

	g := BuildGrid(sections, conflict.Detect(sections), nil)

	cell := g.Cell(domain.Sunday, "08:00")
	require.Len(t, cell, 2)
	assert.True(t, cell[0].Conflict)
	assert.True(t, cell[1].Conflict)
	assert.False(t, g.Cell(domain.Sunday, "09:30")[0].Conflict, "second lab slot overlaps nothing")
	assert.False(t, g.Cell(domain.Monday, "08:00")[0].Conflict)
}

func TestBuildGrid_OffGridAndDefaultDays(t *testing.T) {
	g := BuildGrid(nil, conflict.Set{}, nil)
	assert.Equal(t, defaultDays, g.Days)

	odd := testutil.NewTestSection(5, "ENG101", testutil.WithClass(domain.Friday, "10:15:00"))
	g = BuildGrid([]domain.Section{odd}, conflict.Set{}, nil)
	require.Len(t, g.OffGrid, 1)
	assert.Contains(t, g.OffGrid[0], "ENG101 [5] class Fri 10:15")
	assert.Contains(t, stripANSI(RenderGrid(g)), "Outside the slot table")
}

func TestRenderGrid_MarksLabs(t *testing.T) {
	s := testutil.NewTestSection(7, "CSE220", testutil.WithLab(domain.Tuesday, "14:00:00"))
	out := stripANSI(RenderGrid(BuildGrid([]domain.Section{s}, conflict.Set{}, nil)))

	assert.Contains(t, out, "Tue")
	assert.Contains(t, out, "CSE220L-7*")
}

func TestFormatRoutine(t *testing.T) {
	a := testutil.NewTestSection(1, "CSE110", testutil.WithClass(domain.Sunday, "08:00:00"), testutil.WithFaculties("ABC"))
	b := testutil.NewTestSection(2, "PHY111", testutil.WithClass(domain.Sunday, "08:00:00"), testutil.WithCredit(1.5))
	sections := []domain.Section{a, b}

	out := stripANSI(FormatRoutine(sections, conflict.Detect(sections)))

	assert.Contains(t, out, "CSE110 [1] !")
	assert.Contains(t, out, "ABC")
	assert.Contains(t, out, "TBA")
	assert.Contains(t, out, "2 sections · 4.5 credits")
	assert.Contains(t, out, "2 sections in conflict")
}

func TestFormatRoutine_Empty(t *testing.T) {
	assert.Contains(t, stripANSI(FormatRoutine(nil, conflict.Set{})), "routine is empty")
}

func TestFormatConflicts(t *testing.T) {
	a := testutil.NewTestSection(1, "CSE110", testutil.WithClass(domain.Sunday, "08:00:00"))
	b := testutil.NewTestSection(2, "PHY111", testutil.WithClass(domain.Sunday, "08:00:00"))
	sections := []domain.Section{a, b}

	out := stripANSI(FormatConflicts(sections, conflict.Detect(sections)))
	assert.Contains(t, out, "CSE110 [1]")
	assert.Contains(t, out, "PHY111 [2]")
	assert.Contains(t, out, "Sunday")

	assert.Contains(t, stripANSI(FormatConflicts(sections[:1], conflict.Set{})), "No conflicts")
}

func TestFormatSections(t *testing.T) {
	full := testutil.NewTestSection(9, "CSE110", testutil.WithSeats(30, 30), testutil.WithRoom("UB-101"))
	out := stripANSI(FormatSections([]domain.Section{full}))

	assert.Contains(t, out, "0/30")
	assert.Contains(t, out, "UB-101")
	assert.Contains(t, stripANSI(FormatSections(nil)), "No sections match")
}

func TestFormatSyncState(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	url := func(code string) string { return "https://routine.example/?r=" + code }

	out := stripANSI(FormatSyncState(sharesync.Snapshot{Status: domain.SyncUnshared}, url, now))
	assert.Contains(t, out, "Not shared")
	assert.Contains(t, out, "share create")

	out = stripANSI(FormatSyncState(sharesync.Snapshot{
		Status:        domain.SyncCreatorSynced,
		Link:          &domain.SharedRoutineLink{ShortCode: "AB12CD34", IsCreator: true},
		LastUpdated:   now.Add(-5 * time.Minute),
		LastPushError: errors.New("server unavailable"),
	}, url, now))
	assert.Contains(t, out, "AB12CD34 (creator)")
	assert.Contains(t, out, "https://routine.example/?r=AB12CD34")
	assert.Contains(t, out, "5m ago")
	assert.Contains(t, out, "Last push failed: server unavailable")

	out = stripANSI(FormatSyncState(sharesync.Snapshot{
		Status: domain.SyncViewerDiverged,
		Link:   &domain.SharedRoutineLink{ShortCode: "ZZ", Diverged: true},
	}, nil, now))
	assert.Contains(t, out, "Forked")
	assert.Contains(t, out, "(viewer)")
	assert.Contains(t, out, "no longer applied")
}

func TestSinceFrom(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"zero", time.Time{}, "never"},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-3 * time.Minute), "3m ago"},
		{"hours", now.Add(-2 * time.Hour), "2h ago"},
		{"days", now.Add(-48 * time.Hour), "Feb 27 10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SinceFrom(tt.in, now))
		})
	}
}

func TestCredits(t *testing.T) {
	assert.Equal(t, "3", Credits(3))
	assert.Equal(t, "1.5", Credits(1.5))
}
