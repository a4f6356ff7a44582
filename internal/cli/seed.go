package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
)

// Seed is the YAML document accepted by `planner seed`:
//
//	budget:
//	  total: "30000"
//	  categories:
//	    venue-catering: "12000"
//	expenses:
//	  - {category: venue-catering, vendor: Villa Rosa, amount: "4000", paid: true}
//	events:
//	  - {date: 2026-06-20, title: Ceremony, category: celebration, time_start: "16:00"}
type Seed struct {
	Budget   *SeedBudget       `yaml:"budget"`
	Expenses []core.NewExpense `yaml:"expenses"`
	Events   []core.NewEvent   `yaml:"events"`
}

type SeedBudget struct {
	Total      *core.Money                        `yaml:"total"`
	Categories map[core.BudgetCategory]core.Money `yaml:"categories"`
}

type SeedResult struct {
	Total      bool `json:"total_set"`
	Categories int  `json:"categories"`
	Expenses   int  `json:"expenses"`
	Events     int  `json:"events"`
}

// ParseSeed decodes and validates a seed document. Unknown keys are errors.
func ParseSeed(r io.Reader) (Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}

	var errs []error
	if s.Budget != nil {
		if s.Budget.Total != nil {
			if err := s.Budget.Total.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("budget total: %w", err))
			}
		}
		for c := range s.Budget.Categories {
			if c.DefaultSortOrder() < 0 {
				errs = append(errs, fmt.Errorf("budget category %q: %w", c, core.ErrUnknownCategory))
			}
		}
	}
	for i, e := range s.Expenses {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("expense %d: %w", i, err))
		}
	}
	for i, e := range s.Events {
		if err := e.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// Apply writes the seed through the synchronizers: the budget rows first,
// then expenses one by one and events in a single bulk insert.
func (s Seed) Apply(ctx context.Context, budget *services.BudgetSynchronizer, events *services.EventsSynchronizer) (SeedResult, error) {
	var res SeedResult
	if s.Budget != nil {
		if s.Budget.Total != nil {
			if _, err := budget.SetTotalBudget(ctx, *s.Budget.Total); err != nil {
				return res, err
			}
			res.Total = true
		}
		cats := make([]core.BudgetCategory, 0, len(s.Budget.Categories))
		for c := range s.Budget.Categories {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return cats[i].DefaultSortOrder() < cats[j].DefaultSortOrder() })
		for _, c := range cats {
			if _, err := budget.UpsertCategoryBudget(ctx, c, s.Budget.Categories[c]); err != nil {
				return res, err
			}
			res.Categories++
		}
	}
	for _, e := range s.Expenses {
		if _, err := budget.CreateExpense(ctx, e); err != nil {
			return res, err
		}
		res.Expenses++
	}
	if len(s.Events) > 0 {
		created, err := events.CreateBulk(ctx, s.Events)
		if err != nil {
			return res, err
		}
		res.Events = len(created)
	}
	return res, nil
}

func newSeedCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create budget rows, expenses and events from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := root.app
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			seed, err := ParseSeed(f)
			if err != nil {
				return err
			}

			b, err := budgetSync(cmd, app)
			if err != nil {
				return err
			}
			res, err := seed.Apply(cmd.Context(), b, app.Backend.NewEventsSynchronizer(app.Resolver))
			if err != nil {
				return fmt.Errorf("seed stopped after %+v: %w", res, err)
			}
			return app.Out.Done(fmt.Sprintf("Seeded %d categories, %d expenses and %d events", res.Categories, res.Expenses, res.Events), res)
		},
	}
}
