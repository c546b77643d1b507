package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of your routine and its share",
		Long: "Shows the weekly grid and sync status. While it runs, edits are pushed " +
			"and a followed routine receives the creator's updates.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("watch needs an interactive terminal")
			}
			ctx := cmd.Context()
			app.Routine.ReconcileFromStorage(ctx)
			if err := app.Routine.Follow(); err != nil {
				return err
			}
			p := tea.NewProgram(newWatchModel(ctx, app.Routine, app.now), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			return err
		},
	}
}
