package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
	"github.com/alexanderramin/routinebuzz/internal/domain"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

func huhConfirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// allowEdit guards local edits of a followed routine: editing forks it and
// stops live updates. Non-interactive sessions proceed with a warning.
func allowEdit(app *App, w io.Writer, yes bool) (bool, error) {
	snap := app.Routine.SyncState()
	if !snap.Status.IsPassiveViewer() || yes {
		return true, nil
	}
	code := snap.Link.ShortCode
	if !app.interactive() {
		fmt.Fprintln(w, formatter.Warn(fmt.Sprintf("Editing stops following shared routine %s.", code)))
		return true, nil
	}
	return app.Confirm(
		fmt.Sprintf("Fork shared routine %s?", code),
		"This routine follows another student's share. Editing it keeps your copy but stops live updates.",
	)
}

// reportFork prints a notice when an edit just forked a followed routine.
func reportFork(w io.Writer, before sharesync.Snapshot, after sharesync.Snapshot) {
	if before.Status.IsPassiveViewer() && after.Status == domain.SyncViewerDiverged {
		fmt.Fprintln(w, formatter.Dim(fmt.Sprintf("Forked from %s. Share your version with: routinebuzz share create", before.Link.ShortCode)))
	}
}
