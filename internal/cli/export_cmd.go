package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
	"github.com/alexanderramin/routinebuzz/internal/export"
)

type exportFlags struct {
	out       string
	title     []string
	sep       string
	noLabs    bool
	noExams   bool
	noFaculty bool
	noRoom    bool
	reminder  int
	from      string
	to        string
}

func (f *exportFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.out, "out", "o", "routine.ics", "Output file, or - for stdout")
	fs.StringSliceVar(&f.title, "title", []string{"code", "section"}, "Title fields in order: code, name, section, type")
	fs.StringVar(&f.sep, "sep", " - ", "Separator between title fields")
	fs.BoolVar(&f.noLabs, "no-labs", false, "Leave out lab meetings")
	fs.BoolVar(&f.noExams, "no-exams", false, "Leave out exams")
	fs.BoolVar(&f.noFaculty, "no-faculty", false, "Leave faculty out of descriptions")
	fs.BoolVar(&f.noRoom, "no-room", false, "Leave rooms out of event locations")
	fs.IntVar(&f.reminder, "reminder", 0, "Reminder minutes before each event (0 disables)")
	fs.StringVar(&f.from, "from", "", "Custom range start (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "Custom range end (YYYY-MM-DD)")
}

func (f *exportFlags) options(app *App) (export.Options, error) {
	fields, err := export.ParseTitleFields(f.title)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		TitleFields:     fields,
		Separator:       f.sep,
		IncludeLabs:     !f.noLabs,
		IncludeExams:    !f.noExams,
		IncludeFaculty:  !f.noFaculty,
		IncludeRoom:     !f.noRoom,
		ReminderMinutes: f.reminder,
		From:            f.from,
		To:              f.to,
		Location:        app.location(),
		Now:             app.now(),
	}, nil
}

func newExportCmd(app *App) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your routine as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sections := app.Routine.Sections()
			if len(sections) == 0 {
				return fmt.Errorf("your routine is empty; nothing to export")
			}
			opts, err := flags.options(app)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if flags.out != "-" {
				f, err := os.Create(flags.out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", flags.out, err)
				}
				defer f.Close()
				w = f
			}

			stats, err := export.Write(w, sections, opts)
			if err != nil {
				return err
			}
			if flags.out == "-" {
				return nil
			}

			msg := cmd.OutOrStdout()
			fmt.Fprintln(msg, formatter.Success(fmt.Sprintf("Exported %d weekly events and %d exams to %s", stats.Recurring, stats.Exams, flags.out)))
			for _, s := range stats.Skipped {
				fmt.Fprintln(msg, formatter.Dim("skipped "+s))
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
