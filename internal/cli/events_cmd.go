package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

func newEventsCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List and edit calendar events",
	}
	cmd.AddCommand(newEventsListCommand(root))
	cmd.AddCommand(newEventsAddCommand(root))
	cmd.AddCommand(newEventsUpdateCommand(root))
	cmd.AddCommand(newEventsRemoveCommand(root))
	cmd.AddCommand(newEventsCalendarCommand(root))
	return cmd
}

type eventsListOptions struct {
	*RootOptions
	Date  string
	Month int
	Year  int
}

func newEventsListCommand(root *RootOptions) *cobra.Command {
	opts := &eventsListOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events of a day, a month or the planning year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			sync := app.Backend.NewEventsSynchronizer(app.Resolver)

			var events []core.Event
			switch {
			case opts.Date != "":
				d, err := core.ParseISODate(opts.Date)
				if err != nil {
					return err
				}
				events = sync.FetchByDate(ctx, d)
			case opts.Month > 0:
				if opts.Month > 12 {
					return core.ErrInvalidMonth
				}
				events = sync.FetchMonth(ctx, opts.Month, opts.Year)
			default:
				events = sync.FetchYear(ctx, opts.Year)
			}
			if err := synced(sync.Status()); err != nil {
				return err
			}
			return app.Out.Print(events, func(w io.Writer) { printEvents(w, events) })
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "single day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.Month, "month", 0, "month number (1-12)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "year (default PLANNING_YEAR)")

	return cmd
}

func printEvents(w io.Writer, events []core.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events")
		return
	}
	fmt.Fprintln(w, "DATE\tTIME\tCATEGORY\tTITLE\tID")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Date, timeSpan(e), e.Category.Label(), e.Title, e.ID)
	}
}

func timeSpan(e core.Event) string {
	switch {
	case e.TimeStart == "":
		return "all day"
	case e.TimeEnd == "":
		return e.TimeStart
	default:
		return e.TimeStart + "-" + e.TimeEnd
	}
}

type eventFlags struct {
	Date        string
	Title       string
	Description string
	Start       string
	End         string
	Category    string
}

func (f *eventFlags) register(cmd *cobra.Command, withDate bool) {
	if withDate {
		cmd.Flags().StringVar(&f.Date, "date", "", "event day (YYYY-MM-DD)")
	}
	cmd.Flags().StringVar(&f.Title, "title", "", "event title")
	cmd.Flags().StringVar(&f.Description, "description", "", "free-form notes")
	cmd.Flags().StringVar(&f.Start, "start", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&f.End, "end", "", "end time (HH:MM)")
	cmd.Flags().StringVar(&f.Category, "category", string(core.EventWeddingPrep), "event category: "+eventCategoryKeys())
}

func eventCategoryKeys() string {
	var keys []string
	for _, o := range core.EventCategoryOptions() {
		keys = append(keys, string(o.Value))
	}
	return strings.Join(keys, ", ")
}

func newEventsAddCommand(root *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			date, err := core.ParseISODate(flags.Date)
			if err != nil {
				return err
			}
			event, err := app.Backend.NewEventsSynchronizer(app.Resolver).Create(ctx, core.NewEvent{
				Date:        date,
				Title:       flags.Title,
				Description: flags.Description,
				TimeStart:   flags.Start,
				TimeEnd:     flags.End,
				Category:    core.EventCategory(flags.Category),
			})
			if err != nil {
				return err
			}
			return app.Out.Done(fmt.Sprintf("Created event %s on %s", event.ID, event.Date), event)
		},
	}

	flags.register(cmd, true)
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newEventsUpdateCommand(root *RootOptions) *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields of an event given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			var p core.EventPatch
			set := cmd.Flags().Changed
			if set("title") {
				p.Title = &flags.Title
			}
			if set("description") {
				p.Description = &flags.Description
			}
			if set("start") {
				p.TimeStart = &flags.Start
			}
			if set("end") {
				p.TimeEnd = &flags.End
			}
			if set("category") {
				c := core.EventCategory(flags.Category)
				p.Category = &c
			}
			event, err := app.Backend.NewEventsSynchronizer(app.Resolver).Update(ctx, args[0], p)
			if err != nil {
				return err
			}
			return app.Out.Done("Updated event "+event.ID, event)
		},
	}

	flags.register(cmd, false)
	return cmd
}

func newEventsRemoveCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			if err := app.Backend.NewEventsSynchronizer(app.Resolver).Remove(ctx, args[0]); err != nil {
				return err
			}
			return app.Out.Done("Removed event "+args[0], map[string]string{"id": args[0]})
		},
	}
}

type calendarOptions struct {
	*RootOptions
	Month int
	Year  int
}

func newEventsCalendarCommand(root *RootOptions) *cobra.Command {
	opts := &calendarOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a month grid with event counts and photo markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			if opts.Month < 1 || opts.Month > 12 {
				return core.ErrInvalidMonth
			}
			cal := app.Backend.Calendar
			events := app.Backend.NewEventsSynchronizer(app.Resolver)
			photos := app.Backend.NewPhotosSynchronizer(app.Resolver)

			list := events.FetchMonth(ctx, opts.Month, opts.Year)
			from, to := cal.MonthRange(opts.Month, opts.Year)
			withPhotos := map[string]bool{}
			for _, d := range photos.PhotoDates(ctx, from, to) {
				withPhotos[d.String()] = true
			}
			if err := synced(events.Status()); err != nil {
				return err
			}
			grid := cal.MonthGrid(opts.Month, opts.Year, list, withPhotos)
			return app.Out.Print(grid, func(w io.Writer) {
				fmt.Fprintf(w, "%s %d\n", cal.MonthName(opts.Month), from.Year())
				printGrid(w, grid)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Month, "month", 0, "month number (1-12)")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "year (default PLANNING_YEAR)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

// printGrid renders Sunday-first weeks. Each cell is the day number, the
// event count after a plus and an asterisk for photos; days of the
// neighbouring months are blank.
func printGrid(w io.Writer, grid []core.CalendarDay) {
	fmt.Fprintln(w, "Sun\tMon\tTue\tWed\tThu\tFri\tSat\t")
	for i, d := range grid {
		cell := ""
		if d.IsCurrentMonth {
			cell = fmt.Sprint(d.DayOfMonth)
			if n := len(d.Events); n > 0 {
				cell += fmt.Sprintf("+%d", n)
			}
			if d.HasPhotos {
				cell += "*"
			}
			if d.IsToday {
				cell = "[" + cell + "]"
			}
		}
		fmt.Fprint(w, cell, "\t")
		if i%7 == 6 {
			fmt.Fprintln(w)
		}
	}
}
