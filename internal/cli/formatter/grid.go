package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/routinebuzz/internal/conflict"
	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// defaultDays is shown when the routine has no meetings at all.
var defaultDays = []domain.Weekday{domain.Sunday, domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday}

// GridEntry is one section meeting placed in a weekly grid cell.
type GridEntry struct {
	SectionID int
	Label     string
	Kind      domain.MeetingKind
	Conflict  bool
}

// Grid is the weekly routine laid out as day columns and slot rows.
type Grid struct {
	Days  []domain.Weekday
	Slots []string
	cells map[domain.Weekday]map[string][]GridEntry
	// OffGrid lists meetings whose start time matches no slot.
	OffGrid []string
}

// Cell returns the entries at (day, slot) in routine order.
func (g Grid) Cell(day domain.Weekday, slot string) []GridEntry {
	return g.cells[day][slot]
}

// BuildGrid places classes in their start slot and labs in both slots of
// their span. Entries carrying a conflict marker are flagged.
func BuildGrid(sections []domain.Section, conflicts conflict.Set, grid *domain.TimeGrid) Grid {
	if grid == nil {
		grid = domain.DefaultGrid()
	}
	g := Grid{
		Slots: grid.Slots(),
		cells: make(map[domain.Weekday]map[string][]GridEntry),
	}
	place := func(day domain.Weekday, slot string, e GridEntry) {
		if g.cells[day] == nil {
			g.cells[day] = make(map[string][]GridEntry)
		}
		g.cells[day][slot] = append(g.cells[day][slot], e)
	}

	for _, s := range sections {
		for _, m := range s.ClassMeetings() {
			slot := m.Slot()
			if _, ok := grid.SlotIndexOf(slot); !ok {
				g.OffGrid = append(g.OffGrid, fmt.Sprintf("%s class %s %s", SectionLabel(s), m.Day.Short(), slot))
				continue
			}
			place(m.Day, slot, GridEntry{
				SectionID: s.SectionID,
				Label:     s.CourseCode + "-" + s.SectionName,
				Kind:      domain.MeetingClass,
				Conflict:  conflicts.Has(conflict.Marker{SectionID: s.SectionID, Kind: domain.MeetingClass, Day: m.Day, Slot: slot}),
			})
		}
		for _, m := range s.LabMeetings() {
			if _, ok := grid.SlotIndexOf(m.Slot()); !ok {
				g.OffGrid = append(g.OffGrid, fmt.Sprintf("%s lab %s %s", SectionLabel(s), m.Day.Short(), m.Slot()))
				continue
			}
			code := domain.CoalesceStr(s.LabCourseCode, s.CourseCode+"L")
			for _, slot := range grid.LabSlotSpan(m.StartTime) {
				place(m.Day, slot, GridEntry{
					SectionID: s.SectionID,
					Label:     code + "-" + s.SectionName,
					Kind:      domain.MeetingLab,
					Conflict:  conflicts.Has(conflict.Marker{SectionID: s.SectionID, Kind: domain.MeetingLab, Day: m.Day, Slot: slot}),
				})
			}
		}
	}

	for _, d := range domain.Weekdays {
		if len(g.cells[d]) > 0 {
			g.Days = append(g.Days, d)
		}
	}
	if len(g.Days) == 0 {
		g.Days = defaultDays
	}
	return g
}

// RenderGrid renders the weekly routine table. Conflicting entries are red
// and labs are marked with a trailing asterisk.
func RenderGrid(g Grid) string {
	headers := make([]string, 0, len(g.Days)+1)
	headers = append(headers, "Time")
	for _, d := range g.Days {
		headers = append(headers, d.Short())
	}

	rows := make([][]string, 0, len(g.Slots))
	for _, slot := range g.Slots {
		row := []string{Dim(slot)}
		for _, d := range g.Days {
			row = append(row, renderCell(g.Cell(d, slot)))
		}
		rows = append(rows, row)
	}

	out := RenderTable(headers, rows)
	if len(g.OffGrid) > 0 {
		out += "\n" + Dim("Outside the slot table: "+strings.Join(g.OffGrid, "; ")) + "\n"
	}
	return out
}

func renderCell(entries []GridEntry) string {
	if len(entries) == 0 {
		return Dim("·")
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		label := e.Label
		if e.Kind == domain.MeetingLab {
			label += "*"
		}
		switch {
		case e.Conflict:
			parts[i] = StyleRed.Render(label)
		case e.Kind == domain.MeetingLab:
			parts[i] = StylePurple.Render(label)
		default:
			parts[i] = StyleFg.Render(label)
		}
	}
	return strings.Join(parts, " ")
}
