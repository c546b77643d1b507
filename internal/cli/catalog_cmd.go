package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/routinebuzz/internal/cli/formatter"
	"github.com/alexanderramin/routinebuzz/internal/service"
)

func newCoursesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List offered courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			courses, err := app.Catalog.UniqueCourses(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCourses(courses))
			return nil
		},
	}
}

func newSectionsCmd(app *App) *cobra.Command {
	var (
		filter        service.SectionFilter
		listFaculties bool
	)

	cmd := &cobra.Command{
		Use:   "sections CODE",
		Short: "List a course's sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.ToUpper(strings.TrimSpace(args[0]))
			out := cmd.OutOrStdout()

			if listFaculties {
				faculties, err := app.Catalog.Faculties(cmd.Context(), code)
				if err != nil {
					return err
				}
				if len(faculties) == 0 {
					fmt.Fprintln(out, formatter.Dim("No faculty assigned yet."))
					return nil
				}
				fmt.Fprintln(out, strings.Join(faculties, "\n"))
				return nil
			}

			sections, err := app.Catalog.Sections(cmd.Context(), code, filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.Header(code))
			fmt.Fprint(out, formatter.FormatSections(sections))
			return nil
		},
	}

	cmd.Flags().IntVar(&filter.MinSeats, "min-seats", 0, "Only sections with at least this many free seats")
	cmd.Flags().StringSliceVar(&filter.IncludeFaculties, "faculty", nil, "Only sections taught by these faculty initials")
	cmd.Flags().StringSliceVar(&filter.ExcludeFaculties, "exclude-faculty", nil, "Hide sections taught by these faculty initials")
	cmd.Flags().BoolVar(&listFaculties, "faculties", false, "List the course's faculty initials instead")
	return cmd
}
