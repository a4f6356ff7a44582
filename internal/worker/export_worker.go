// Package worker runs the budget export loop: it mirrors the budget, listens
// for realtime changes and re-exports the expense ledger after they settle.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
	"github.com/jerardpelaez/wedding-calendar/internal/sheets"
)

// Config holds the timing of the export loop.
type Config struct {
	// Debounce is how long changes must stay quiet before an export (default: 5s)
	Debounce time.Duration

	// ResyncInterval triggers a full export even without notifications, in
	// case some were lost (default: 15m)
	ResyncInterval time.Duration

	// MaxRetries is the number of attempts per export (default: 3)
	MaxRetries int

	// RetryDelay is the first backoff between attempts, doubled each time (default: 1s)
	RetryDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		Debounce:       5 * time.Second,
		ResyncInterval: 15 * time.Minute,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = d.ResyncInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}

type ExportWorker struct {
	budget   *services.BudgetSynchronizer
	exporter sheets.ExpenseExporter
	session  services.SessionSource
	config   Config
	logger   *applog.Logger
	now      func() time.Time

	trigger chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	lastRef string
	exports int
}

func NewExportWorker(budget *services.BudgetSynchronizer, exporter sheets.ExpenseExporter, session services.SessionSource, cfg Config, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportWorker{
		budget:   budget,
		exporter: exporter,
		session:  session,
		config:   cfg.withDefaults(),
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
	}
}

// Start subscribes to budget changes and begins the loop. Returns an error
// if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.budget.Subscribe(ctx, w.Notify); err != nil {
		w.logger.WarnContext(ctx, "Realtime subscription failed, relying on periodic resync", applog.FieldError, err)
	}

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Export worker started",
		"debounce", w.config.Debounce,
		"resync_interval", w.config.ResyncInterval)
	return nil
}

// Stop ends the loop and waits for it, or for ctx.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	if err := w.budget.Unsubscribe(); err != nil {
		w.logger.WarnContext(ctx, "Unsubscribe failed", applog.FieldError, err)
	}
	close(stopCh)

	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Notify schedules an export; notifications arriving during the debounce
// window collapse into one.
func (w *ExportWorker) Notify() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Stats returns the number of completed exports and the last reference.
func (w *ExportWorker) Stats() (exports int, lastRef string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exports, w.lastRef
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	resync := time.NewTicker(w.config.ResyncInterval)
	defer resync.Stop()

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	// Export immediately on startup
	w.exportLogged(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-w.trigger:
			if debounce == nil {
				debounce = time.NewTimer(w.config.Debounce)
			} else {
				debounce.Reset(w.config.Debounce)
			}
			fire = debounce.C
		case <-fire:
			fire = nil
			w.exportLogged(ctx)
		case <-resync.C:
			w.exportLogged(ctx)
		}
	}
}

func (w *ExportWorker) exportLogged(ctx context.Context) {
	if _, err := w.ExportNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Export failed", applog.FieldError, err)
	}
}

// ExportNow refetches the budget and writes the export, retrying with
// exponential backoff.
func (w *ExportWorker) ExportNow(ctx context.Context) (string, error) {
	s := w.session.State()
	if !s.IsAuthenticated {
		return "", core.ErrNotAuthenticated
	}

	w.budget.FetchAll(ctx)
	if st := w.budget.Status(); st.Err != "" {
		return "", fmt.Errorf("refresh budget: %s", st.Err)
	}
	export := sheets.Export{
		CoupleID:    s.CoupleID,
		GeneratedAt: w.now(),
		Summary:     w.budget.Summary(),
		Expenses:    w.budget.Expenses(),
		Breakdown:   w.budget.Breakdown(),
	}

	var lastErr error
	delay := w.config.RetryDelay
	for attempt := 1; attempt <= w.config.MaxRetries; attempt++ {
		ref, err := w.exporter.ExportExpenses(ctx, export)
		if err == nil {
			w.mu.Lock()
			w.exports++
			w.lastRef = ref
			w.mu.Unlock()
			w.logger.InfoContext(ctx, "Budget exported",
				applog.FieldCoupleID, s.CoupleID,
				applog.FieldCount, len(export.Expenses),
				applog.FieldSheetsRef, ref)
			return ref, nil
		}
		lastErr = err
		w.logger.WarnContext(ctx, "Export attempt failed",
			"attempt", attempt, applog.FieldError, err)
		if attempt == w.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("export after %d attempts: %w", w.config.MaxRetries, lastErr)
}
