package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/availability"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

// NewAvailabilityCmd checks which members are free in a window.
func NewAvailabilityCmd() *cobra.Command {
	var date, start, end, until, exclude string

	cmd := &cobra.Command{
		Use:     "availability",
		Aliases: []string{"avail"},
		Short:   "Check member availability for a date and hours",
		Long: "Classify every member of the company as fully available, partially available or " +
			"unavailable for the window, with the commitments that conflict with it.",
		Example: "  shootplan availability --date tomorrow --start 9 --end 17\n" +
			"  shootplan availability --date monday --until friday --start 8am --end 6pm",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			w, err := parseWindow(date, start, end)
			if err != nil {
				return err
			}

			var opts []availability.Option
			if exclude != "" {
				opts = append(opts, availability.ExcludeProject(exclude))
			}
			r, err := app.Availability(opts...)
			if err != nil {
				return err
			}

			if until != "" {
				last, err := parseDate(until)
				if err != nil {
					return err
				}
				res, err := r.FetchRange(cmd.Context(), w.Date, last, w.Start, w.End)
				if err != nil {
					return output.ErrUsage(err.Error())
				}
				return app.OK(res.Members,
					output.WithSummary(fmt.Sprintf("%s to %s, %s", w.Date, last, countsSummary(res.Counts))),
					output.WithMeta("counts", res.Counts),
					output.WithMeta("date_range", res.DateRange))
			}

			view, err := r.Load(cmd.Context(), w)
			if err != nil {
				return err
			}
			return app.OK(view.Members,
				output.WithSummary(fmt.Sprintf("%s, %s", w, countsSummary(view.Counts))),
				output.WithMeta("counts", view.Counts))
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "Date (YYYY-MM-DD, today, tomorrow, monday, +3)")
	cmd.Flags().StringVar(&start, "start", "9", "Start hour")
	cmd.Flags().StringVar(&end, "end", "17", "End hour (24 is midnight)")
	cmd.Flags().StringVar(&until, "until", "", "Last date of a multi-day range")
	cmd.Flags().StringVar(&exclude, "exclude-project", "", "Ignore this project's own bookings")

	return cmd
}

func countsSummary(c models.AvailabilityCounts) string {
	return fmt.Sprintf("%d available, %d partially available, %d unavailable",
		c.FullyAvailable, c.PartiallyAvailable, c.Unavailable)
}
