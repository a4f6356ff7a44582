package feed

import (
	"context"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// Notifier publishes a change after each successful store write. A publish
// failure is logged and never returned: the row is already committed.
type Notifier struct {
	publisher remote.Publisher
	logger    *applog.Logger
	now       func() time.Time
}

func NewNotifier(p remote.Publisher, logger *applog.Logger) *Notifier {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Notifier{publisher: p, logger: logger.WithComponent(applog.ComponentFeed), now: time.Now}
}

func (n *Notifier) notify(ctx context.Context, table core.Table, kind remote.ChangeKind, coupleID, recordID string) {
	if n.publisher == nil {
		return
	}
	c := remote.Change{Table: table, Kind: kind, CoupleID: coupleID, RecordID: recordID, At: n.now().UTC()}
	if err := n.publisher.Publish(ctx, c); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish change",
			applog.FieldTable, string(table),
			applog.FieldCoupleID, coupleID,
			applog.FieldRecordID, recordID,
			applog.FieldError, err)
	}
}

func (n *Notifier) Budget(s remote.BudgetStore) remote.BudgetStore {
	return &budgetStore{BudgetStore: s, n: n}
}

func (n *Notifier) Events(s remote.EventStore) remote.EventStore {
	return &eventStore{EventStore: s, n: n}
}

func (n *Notifier) Photos(s remote.PhotoStore) remote.PhotoStore {
	return &photoStore{PhotoStore: s, n: n}
}

type budgetStore struct {
	remote.BudgetStore
	n *Notifier
}

func (s *budgetStore) UpsertBudget(ctx context.Context, coupleID string, total core.Money) (core.Budget, error) {
	b, err := s.BudgetStore.UpsertBudget(ctx, coupleID, total)
	if err == nil {
		s.n.notify(ctx, core.TableBudgets, remote.ChangeUpdate, coupleID, b.ID)
	}
	return b, err
}

func (s *budgetStore) UpsertCategory(ctx context.Context, coupleID string, category core.BudgetCategory, estimated core.Money, sortOrder int) (core.CategoryAllocation, error) {
	c, err := s.BudgetStore.UpsertCategory(ctx, coupleID, category, estimated, sortOrder)
	if err == nil {
		s.n.notify(ctx, core.TableBudgetCategories, remote.ChangeUpdate, coupleID, c.ID)
	}
	return c, err
}

func (s *budgetStore) InsertExpense(ctx context.Context, coupleID, createdBy string, e core.NewExpense) (core.Expense, error) {
	out, err := s.BudgetStore.InsertExpense(ctx, coupleID, createdBy, e)
	if err == nil {
		s.n.notify(ctx, core.TableBudgetExpenses, remote.ChangeInsert, coupleID, out.ID)
	}
	return out, err
}

func (s *budgetStore) UpdateExpense(ctx context.Context, coupleID, id string, p core.ExpensePatch) (core.Expense, error) {
	out, err := s.BudgetStore.UpdateExpense(ctx, coupleID, id, p)
	if err == nil {
		s.n.notify(ctx, core.TableBudgetExpenses, remote.ChangeUpdate, coupleID, id)
	}
	return out, err
}

func (s *budgetStore) DeleteExpense(ctx context.Context, coupleID, id string) error {
	err := s.BudgetStore.DeleteExpense(ctx, coupleID, id)
	if err == nil {
		s.n.notify(ctx, core.TableBudgetExpenses, remote.ChangeDelete, coupleID, id)
	}
	return err
}

type eventStore struct {
	remote.EventStore
	n *Notifier
}

func (s *eventStore) InsertEvents(ctx context.Context, coupleID, createdBy string, events []core.NewEvent) ([]core.Event, error) {
	out, err := s.EventStore.InsertEvents(ctx, coupleID, createdBy, events)
	if err == nil {
		for _, e := range out {
			s.n.notify(ctx, core.TableEvents, remote.ChangeInsert, coupleID, e.ID)
		}
	}
	return out, err
}

func (s *eventStore) UpdateEvent(ctx context.Context, coupleID, id string, p core.EventPatch) (core.Event, error) {
	out, err := s.EventStore.UpdateEvent(ctx, coupleID, id, p)
	if err == nil {
		s.n.notify(ctx, core.TableEvents, remote.ChangeUpdate, coupleID, id)
	}
	return out, err
}

func (s *eventStore) DeleteEvent(ctx context.Context, coupleID, id string) error {
	err := s.EventStore.DeleteEvent(ctx, coupleID, id)
	if err == nil {
		s.n.notify(ctx, core.TableEvents, remote.ChangeDelete, coupleID, id)
	}
	return err
}

type photoStore struct {
	remote.PhotoStore
	n *Notifier
}

func (s *photoStore) InsertPhoto(ctx context.Context, coupleID, uploadedBy string, rec remote.PhotoRecord) (core.Photo, error) {
	out, err := s.PhotoStore.InsertPhoto(ctx, coupleID, uploadedBy, rec)
	if err == nil {
		s.n.notify(ctx, core.TablePhotos, remote.ChangeInsert, coupleID, out.ID)
	}
	return out, err
}

func (s *photoStore) DeletePhoto(ctx context.Context, coupleID, id string) error {
	err := s.PhotoStore.DeletePhoto(ctx, coupleID, id)
	if err == nil {
		s.n.notify(ctx, core.TablePhotos, remote.ChangeDelete, coupleID, id)
	}
	return err
}
