package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/routinebuzz/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusPill returns a colored indicator for a sync status.
func StatusPill(status domain.SyncStatus) string {
	switch status {
	case domain.SyncCreatorSynced:
		return StyleGreen.Render("● Shared")
	case domain.SyncCreatorSyncing:
		return StyleYellow.Render("◌ Syncing")
	case domain.SyncViewerLive:
		return StyleBlue.Render("● Live")
	case domain.SyncViewerConnecting:
		return StyleYellow.Render("◌ Connecting")
	case domain.SyncViewerDiverged:
		return StylePurple.Render("⑂ Forked")
	case domain.SyncUnshared, "":
		return StyleDim.Render("○ Not shared")
	default:
		return StyleDim.Render(string(status))
	}
}

// Header renders an upper-cased title with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(strings.Repeat("─", lipgloss.Width(upper))))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}

// Warn renders a yellow warning line.
func Warn(text string) string {
	return StyleYellow.Render("⚠ " + text)
}

// Success renders a green confirmation line.
func Success(text string) string {
	return StyleGreen.Render("✔ " + text)
}
