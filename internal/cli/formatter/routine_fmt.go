package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// FormatCourses renders the course catalog.
func FormatCourses(courses []domain.CourseSummary) string {
	if len(courses) == 0 {
		return Dim("No courses available.") + "\n"
	}
	rows := make([][]string, len(courses))
	for i, c := range courses {
		rows[i] = []string{Bold(c.CourseCode), c.CourseName, Credits(c.CourseCredit)}
	}
	return RenderTable([]string{"Code", "Name", "Credits"}, rows)
}

// FormatSections renders a course's sections with seats and meeting times.
func FormatSections(sections []domain.Section) string {
	if len(sections) == 0 {
		return Dim("No sections match.") + "\n"
	}
	rows := make([][]string, len(sections))
	for i, s := range sections {
		rows[i] = []string{
			StyleBlue.Render(strconv.Itoa(s.SectionID)),
			s.SectionName,
			domain.CoalesceStr(s.Faculties, "TBA"),
			Seats(s),
			Meetings(s.ClassMeetings()),
			Meetings(s.LabMeetings()),
			domain.CoalesceStr(s.RoomName, s.RoomNumber, "--"),
		}
	}
	return RenderTable([]string{"ID", "Section", "Faculty", "Seats", "Classes", "Lab", "Room"}, rows)
}

// FormatRoutine renders the routine list with conflicted sections marked.
func FormatRoutine(sections []domain.Section, conflicts conflict.Set) string {
	if len(sections) == 0 {
		return Dim("Your routine is empty. Add a section with: routinebuzz routine add ID") + "\n"
	}
	rows := make([][]string, len(sections))
	for i, s := range sections {
		label := SectionLabel(s)
		if conflicts.HasSection(s.SectionID) {
			label = StyleRed.Render(label + " !")
		}
		rows[i] = []string{
			StyleBlue.Render(strconv.Itoa(s.SectionID)),
			label,
			domain.CoalesceStr(s.Faculties, "TBA"),
			Seats(s),
			Credits(s.CourseCredit),
			Meetings(s.ClassMeetings()),
			Meetings(s.LabMeetings()),
		}
	}
	var b strings.Builder
	b.WriteString(RenderTable([]string{"ID", "Course", "Faculty", "Seats", "Cr", "Classes", "Lab"}, rows))
	b.WriteString("\n")
	b.WriteString(Dim(fmt.Sprintf("%d sections · %s credits", len(sections), Credits(domain.TotalCredits(sections)))))
	if n := len(conflicts.SectionIDs()); n > 0 {
		b.WriteString("  ")
		b.WriteString(StyleRed.Render(fmt.Sprintf("%d sections in conflict", n)))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatConflicts lists each conflicted meeting slot.
func FormatConflicts(sections []domain.Section, conflicts conflict.Set) string {
	if conflicts.Len() == 0 {
		return Success("No conflicts.") + "\n"
	}
	byID := make(map[int]domain.Section, len(sections))
	for _, s := range sections {
		byID[s.SectionID] = s
	}
	rows := make([][]string, 0, conflicts.Len())
	for _, m := range conflicts.Sorted() {
		rows = append(rows, []string{
			StyleRed.Render(SectionLabel(byID[m.SectionID])),
			string(m.Kind),
			m.Day.Title(),
			m.Slot,
		})
	}
	return RenderTable([]string{"Section", "Kind", "Day", "Slot"}, rows)
}

// FormatSyncState renders the share link and sync status. shareURL may be
// nil when no link prefix is configured.
func FormatSyncState(snap sharesync.Snapshot, shareURL func(string) string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Status:  %s\n", StatusPill(snap.Status))
	if snap.Link == nil {
		b.WriteString(Dim("Share your routine with: routinebuzz share create") + "\n")
		return b.String()
	}

	role := "viewer"
	if snap.Link.IsCreator {
		role = "creator"
	}
	fmt.Fprintf(&b, "Code:    %s %s\n", Bold(snap.Link.ShortCode), Dim("("+role+")"))
	if shareURL != nil {
		fmt.Fprintf(&b, "Link:    %s\n", StyleBlue.Render(shareURL(snap.Link.ShortCode)))
	}
	if !snap.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "Updated: %s\n", SinceFrom(snap.LastUpdated, now))
	}
	if snap.PushPending {
		b.WriteString(StyleYellow.Render("Changes waiting to be pushed") + "\n")
	}
	if snap.LastPushError != nil {
		b.WriteString(Warn("Last push failed: "+snap.LastPushError.Error()) + "\n")
	}
	if snap.ConnectionError != nil {
		b.WriteString(Warn("Realtime unavailable: "+snap.ConnectionError.Error()) + "\n")
	}
	if snap.Status == domain.SyncViewerDiverged {
		b.WriteString(Dim("You edited this routine, so updates from the creator are no longer applied.") + "\n")
	}
	return b.String()
}
