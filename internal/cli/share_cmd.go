package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
)

func newShareCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Share your routine or follow someone else's",
	}
	cmd.AddCommand(
		newShareCreateCmd(app),
		newShareOpenCmd(app),
		newShareStatusCmd(app),
	)
	return cmd
}

func newShareCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Publish your routine and print its share link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := app.Routine.Share(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success("Routine shared"))
			fmt.Fprintf(out, "Code: %s\n", formatter.Bold(code))
			fmt.Fprintf(out, "Link: %s\n", formatter.StyleBlue.Render(app.Routine.ShareURL(code)))
			fmt.Fprintln(out, formatter.Dim("Your later edits are pushed to everyone following this code."))
			return nil
		},
	}
}

func newShareOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open CODE|URL",
		Short: "Replace your routine with a shared one and follow it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := parseShareCode(args[0])
			shared, err := app.Routine.Open(cmd.Context(), code)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.Success(fmt.Sprintf("Opened shared routine %s (%d sections)", code, len(shared.Sections))))
			snap := app.Routine.SyncState()
			if snap.Link != nil && snap.Link.IsCreator {
				fmt.Fprintln(out, formatter.Dim("You created this routine; your edits keep updating it."))
				return nil
			}
			fmt.Fprintln(out, formatter.Dim("Run `routinebuzz watch` to receive live updates."))
			return nil
		},
	}
}

func newShareStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the share link and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSyncState(app.Routine.SyncState(), app.Routine.ShareURL, app.now()))
			return nil
		},
	}
}

// parseShareCode accepts a bare code or a share link carrying it in "r".
func parseShareCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "?") {
		return input
	}
	u, err := url.Parse(input)
	if err != nil {
		return input
	}
	if r := u.Query().Get("r"); r != "" {
		return r
	}
	return input
}
