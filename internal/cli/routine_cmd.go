package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
	"github.com/alexanderramin/routinebuzz/internal/domain"
)

func newRoutineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routine",
		Short: "Build and inspect your routine",
	}
	cmd.AddCommand(
		newRoutineAddCmd(app),
		newRoutineRemoveCmd(app),
		newRoutineListCmd(app),
		newRoutineGridCmd(app),
		newRoutineConflictsCmd(app),
		newRoutineClearCmd(app),
		newRoutineRefreshCmd(app),
	)
	return cmd
}

func parseSectionIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid section id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one section id is required")
	}
	return ids, nil
}

func newRoutineAddCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "add ID...",
		Short: "Add sections to your routine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSectionIDs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := allowEdit(app, cmd.ErrOrStderr(), yes); err != nil || !ok {
				return err
			}
			before := app.Routine.SyncState()

			for _, id := range ids {
				res, err := app.Routine.Add(cmd.Context(), id)
				if err != nil {
					return err
				}
				sec, _ := app.Routine.Store().Get(id)
				if !res.Added {
					fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("%s is already in your routine", formatter.SectionLabel(sec))))
					continue
				}
				fmt.Fprintln(out, formatter.Success("Added "+formatter.SectionLabel(sec)))
				if res.HasConflict {
					fmt.Fprintln(out, formatter.Warn(fmt.Sprintf("%s conflicts with existing courses", formatter.SectionLabel(sec))))
				}
			}
			reportFork(out, before, app.Routine.SyncState())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before forking a followed routine")
	return cmd
}

func newRoutineRemoveCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove ID...",
		Aliases: []string{"rm"},
		Short:   "Remove sections from your routine",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseSectionIDs(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := allowEdit(app, cmd.ErrOrStderr(), yes); err != nil || !ok {
				return err
			}
			before := app.Routine.SyncState()

			for _, id := range ids {
				sec, found := app.Routine.Store().Get(id)
				if !found || !app.Routine.Remove(id) {
					fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("Section %d is not in your routine", id)))
					continue
				}
				fmt.Fprintln(out, formatter.Success("Removed "+formatter.SectionLabel(sec)))
			}
			reportFork(out, before, app.Routine.SyncState())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask before forking a followed routine")
	return cmd
}

func newRoutineListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the sections in your routine",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRoutine(app.Routine.Sections(), app.Routine.Conflicts()))
			return nil
		},
	}
}

func newRoutineGridCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "Show your routine as a weekly grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grid := formatter.BuildGrid(app.Routine.Sections(), app.Routine.Conflicts(), domain.DefaultGrid())
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderGrid(grid))
			return nil
		},
	}
}

func newRoutineConflictsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List clashing meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatConflicts(app.Routine.Sections(), app.Routine.Conflicts()))
			return nil
		},
	}
}

func newRoutineClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every section and detach any share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(app.Routine.Sections()) == 0 && app.Routine.SyncState().Link == nil {
				fmt.Fprintln(out, formatter.Dim("Your routine is already empty."))
				return nil
			}
			if !yes {
				if !app.interactive() {
					return fmt.Errorf("refusing to clear without --yes in a non-interactive session")
				}
				ok, err := app.Confirm("Clear your routine?", "All sections are removed and any share link is detached.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, formatter.Dim("Cancelled."))
					return nil
				}
			}
			app.Routine.Clear()
			fmt.Fprintln(out, formatter.Success("Routine cleared"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newRoutineRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Update seat counts from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Routine.RefreshSeats(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), formatter.Dim("Seat counts are up to date."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.Success(fmt.Sprintf("Updated seat counts for %d sections", n)))
			return nil
		},
	}
}
