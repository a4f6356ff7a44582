package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jerardpelaez/wedding-calendar/internal/backend"
	"github.com/jerardpelaez/wedding-calendar/internal/config"
	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
	"github.com/jerardpelaez/wedding-calendar/internal/session"
)

// BackendOpener yields the backend a command runs against and the func
// that releases it.
type BackendOpener func(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.Backend, func() error, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Open defaults to the backend selected by DATA_BACKEND.
	Open BackendOpener

	app *App
}

// App is the state a command runs with, built once per invocation.
type App struct {
	Config   *config.Config
	Logger   *applog.Logger
	Backend  *backend.Backend
	Resolver *session.Resolver
	Out      *OutputFormatter

	release func() error
}

var errNotSignedIn = errors.New("not signed in to a couple: run 'planner signin' first")

// Session resolves the signed-in member. It fails unless a couple is bound.
func (a *App) Session(ctx context.Context) (core.Session, error) {
	if err := a.Resolver.Initialize(ctx); err != nil {
		return core.Session{}, err
	}
	s := a.Resolver.State()
	if !s.IsAuthenticated {
		return s, errNotSignedIn
	}
	return s, nil
}

// Close releases the resolver and the backend.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.Resolver.Close()
	if a.release != nil {
		return a.release()
	}
	return nil
}

// synced returns the failure a synchronizer recorded during its last fetch.
func synced(s services.Status) error {
	if s.Err == "" {
		return nil
	}
	return errors.New(s.Err)
}

func defaultOpener(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*backend.Backend, func() error, error) {
	b, err := OpenBackend(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return b, b.Close, nil
}

// NewRootCommand creates the root command of the planner CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}
	if opts.Open == nil {
		opts.Open = defaultOpener
	}

	cmd := &cobra.Command{
		Use:           "planner",
		Short:         "Wedding planner: calendar, budget and photos for a couple",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.bootstrap(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (json|text)")

	cmd.AddCommand(newSignInCommand(opts))
	cmd.AddCommand(newSignOutCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newBudgetCommand(opts))
	cmd.AddCommand(newPhotosCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newAdminCommand(opts))

	return cmd
}

func (o *RootOptions) bootstrap(cmd *cobra.Command) error {
	LoadEnvFile()
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg, cmd.ErrOrStderr(), o.Verbose)

	b, release, err := o.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	o.app = &App{
		Config:   cfg,
		Logger:   logger,
		Backend:  b,
		Resolver: session.NewResolver(b.Auth, b.Store, logger),
		Out:      &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()},
		release:  release,
	}
	return nil
}

// Execute runs the planner CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	opts := &RootOptions{}
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if cerr := opts.app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
