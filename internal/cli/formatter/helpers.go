package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		Padding(1, 2)
	if title == "" {
		return box.Render(content)
	}
	return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
}

// SinceFrom returns a short relative timestamp such as "3m ago".
func SinceFrom(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := now.Sub(t)
	switch {
	case diff < 0:
		return t.Format("Jan 2 15:04")
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

// SectionLabel renders "CSE110 [01]".
func SectionLabel(s domain.Section) string {
	return fmt.Sprintf("%s [%s]", s.CourseCode, s.SectionName)
}

// Meetings renders meetings compactly, e.g. "Sun 08:00, Tue 08:00".
func Meetings(ms []domain.Meeting) string {
	if len(ms) == 0 {
		return Dim("--")
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = m.Day.Short() + " " + m.Slot()
	}
	return strings.Join(parts, ", ")
}

// Seats colors the available seat count: red when full, yellow when nearly full.
func Seats(s domain.Section) string {
	avail := s.AvailableSeats()
	text := fmt.Sprintf("%d/%d", avail, s.Capacity)
	switch {
	case avail <= 0:
		return StyleRed.Render(text)
	case avail <= 5:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

// Credits renders a credit value without trailing zeros.
func Credits(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
