package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

type watchOptions struct {
	*RootOptions
	Date string
}

// subscriber is the realtime half of every synchronizer.
type subscriber interface {
	Subscribe(ctx context.Context, onChange func()) error
	Unsubscribe() error
}

func newWatchCommand(root *RootOptions) *cobra.Command {
	opts := &watchOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes made by either partner until interrupted",
		Long: `Subscribe to the couple's budget, events and photos and print a line
each time the partner (or another process) changes them. The affected
collection is refetched before the line is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := opts.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}

			var day core.Date
			if opts.Date != "" {
				d, err := core.ParseISODate(opts.Date)
				if err != nil {
					return err
				}
				day = d
			}

			budget := app.Backend.NewBudgetSynchronizer(app.Resolver)
			events := app.Backend.NewEventsSynchronizer(app.Resolver)
			photos := app.Backend.NewPhotosSynchronizer(app.Resolver)

			var mu sync.Mutex
			report := func(what string, fields ...any) {
				mu.Lock()
				defer mu.Unlock()
				line := fmt.Sprintf("%s %s changed", time.Now().Format(time.TimeOnly), what)
				if len(fields) > 0 {
					line += ": " + fmt.Sprint(fields...)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			watched := []struct {
				name string
				sub  subscriber
				on   func()
			}{
				{"budget", budget, func() {
					budget.FetchAll(ctx)
					report("budget", budget.Summary().Spent, " spent")
				}},
				{"events", events, func() {
					list := events.FetchYear(ctx, 0)
					report("events", len(list), " this year")
				}},
				{"photos", photos, func() {
					if opts.Date == "" {
						report("photos")
						return
					}
					report("photos", len(photos.FetchByDate(ctx, day)), " on ", opts.Date)
				}},
			}
			for _, w := range watched {
				if err := w.sub.Subscribe(ctx, w.on); err != nil {
					return fmt.Errorf("subscribe %s: %w", w.name, err)
				}
			}
			defer func() {
				for _, w := range watched {
					if err := w.sub.Unsubscribe(); err != nil {
						app.Logger.Warn("unsubscribe failed", "collection", w.name, "error", err)
					}
				}
			}()

			app.Logger.Info("watching for changes", "couple", app.Resolver.State().CoupleID)
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "also refetch the photos of this day (YYYY-MM-DD)")
	return cmd
}
