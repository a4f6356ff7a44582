package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
)

func newPhotosCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photos",
		Short: "Browse, upload and delete photos by day",
	}
	cmd.AddCommand(newPhotosListCommand(root))
	cmd.AddCommand(newPhotosUploadCommand(root))
	cmd.AddCommand(newPhotosRemoveCommand(root))
	cmd.AddCommand(newPhotosDatesCommand(root))
	return cmd
}

// photosOn returns a synchronizer holding the photos of one day.
func photosOn(cmd *cobra.Command, app *App, day string) (*services.PhotosSynchronizer, core.Date, error) {
	date, err := core.ParseISODate(day)
	if err != nil {
		return nil, core.Date{}, err
	}
	if _, err := app.Session(cmd.Context()); err != nil {
		return nil, core.Date{}, err
	}
	p := app.Backend.NewPhotosSynchronizer(app.Resolver)
	p.FetchByDate(cmd.Context(), date)
	if err := synced(p.Status()); err != nil {
		return nil, core.Date{}, err
	}
	return p, date, nil
}

func newPhotosListCommand(root *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the photos of a day with signed URLs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			p, _, err := photosOn(cmd, app, day)
			if err != nil {
				return err
			}
			photos := p.Photos()
			return app.Out.Print(photos, func(w io.Writer) {
				if len(photos) == 0 {
					fmt.Fprintln(w, "No photos")
					return
				}
				fmt.Fprintln(w, "ID\tCAPTION\tURL")
				for _, ph := range photos {
					fmt.Fprintf(w, "%s\t%s\t%s\n", ph.ID, orDash(ph.Caption), orDash(ph.URL))
				}
			})
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newPhotosUploadCommand(root *RootOptions) *cobra.Command {
	var day, caption string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			p, date, err := photosOn(cmd, app, day)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			photo, err := p.Upload(cmd.Context(), services.PhotoUpload{
				Date:        date,
				Filename:    filepath.Base(args[0]),
				ContentType: mime.TypeByExtension(filepath.Ext(args[0])),
				Caption:     caption,
				Body:        f,
			})
			if err != nil {
				return err
			}
			return app.Out.Done(fmt.Sprintf("Uploaded %s as %s", filepath.Base(args[0]), photo.ID), photo)
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "day the photo belongs to (YYYY-MM-DD)")
	cmd.Flags().StringVar(&caption, "caption", "", "caption")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newPhotosRemoveCommand(root *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a photo and its stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			p, _, err := photosOn(cmd, app, day)
			if err != nil {
				return err
			}
			if err := p.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("%s: %w", day, err)
			}
			return app.Out.Done("Removed photo "+args[0], map[string]string{"id": args[0]})
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "day the photo belongs to (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newPhotosDatesCommand(root *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "dates",
		Short: "List the days that have photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			ctx := cmd.Context()
			if _, err := app.Session(ctx); err != nil {
				return err
			}
			cal := app.Backend.Calendar
			start, _ := cal.MonthRange(1, 0)
			_, end := cal.MonthRange(12, 0)
			var err error
			if from != "" {
				if start, err = core.ParseISODate(from); err != nil {
					return err
				}
			}
			if to != "" {
				if end, err = core.ParseISODate(to); err != nil {
					return err
				}
			}
			p := app.Backend.NewPhotosSynchronizer(app.Resolver)
			dates := p.PhotoDates(ctx, start, end)
			return app.Out.Print(dates, func(w io.Writer) {
				for _, d := range dates {
					fmt.Fprintln(w, d)
				}
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (default start of PLANNING_YEAR)")
	cmd.Flags().StringVar(&to, "to", "", "last day (default end of PLANNING_YEAR)")
	return cmd
}
