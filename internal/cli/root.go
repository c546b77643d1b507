package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/routinebuzz/internal/remote"
	"github.com/alexanderramin/routinebuzz/internal/service"
	"github.com/alexanderramin/routinebuzz/internal/sharesync"
)

// ServeOptions configures the share server started by "serve".
type ServeOptions struct {
	Addr        string
	CatalogPath string
}

// App holds the services and environment hooks used by CLI commands.
type App struct {
	Catalog service.CatalogService
	Routine service.RoutineService

	// Location is the zone catalog times are expressed in.
	Location *time.Location

	Serve         func(ctx context.Context, opts ServeOptions) error
	ServeDefaults ServeOptions

	// IsInteractive reports whether prompts can be shown.
	IsInteractive func() bool
	// Confirm asks a yes/no question. Defaults to a huh confirm form.
	Confirm func(title, description string) (bool, error)
	Now     func() time.Time
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.UTC
}

// NewRootCmd creates the top-level "routinebuzz" command.
func NewRootCmd(app *App) *cobra.Command {
	if app.Confirm == nil {
		app.Confirm = huhConfirm
	}

	root := &cobra.Command{
		Use:           "routinebuzz",
		Short:         "Build a conflict-free class routine and share it live",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCoursesCmd(app),
		newSectionsCmd(app),
		newRoutineCmd(app),
		newShareCmd(app),
		newWatchCmd(app),
		newExportCmd(app),
		newServeCmd(app),
	)
	return root
}

// Describe turns an error into a message for the terminal.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, sharesync.ErrEmptyRoutine):
		return "your routine is empty; add sections before sharing"
	case errors.Is(err, sharesync.ErrShareNotFound):
		return "no shared routine exists with that code"
	case errors.Is(err, service.ErrSectionNotFound):
		return err.Error()
	case errors.Is(err, remote.ErrUnavailable):
		return "cannot reach the routine server; check ROUTINEBUZZ_API_URL"
	case errors.Is(err, remote.ErrTimeout):
		return "the routine server did not respond in time"
	case errors.Is(err, remote.ErrForbidden):
		return "this routine belongs to another session"
	}
	return err.Error()
}
