// Package remote declares the ports the synchronizers talk to: the tenant
// scoped tables, object storage, the realtime change feed and the
// authentication provider. Adapters live in sibling packages.
package remote

import (
	"context"
	"io"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

// CoupleDirectory resolves the couple a user belongs to.
type CoupleDirectory interface {
	// MembershipForUser returns core.ErrNotFound when the user has no couple.
	MembershipForUser(ctx context.Context, userID string) (core.Membership, error)
}

type BudgetStore interface {
	// GetBudget returns nil without error when the couple has no budget row.
	GetBudget(ctx context.Context, coupleID string) (*core.Budget, error)
	UpsertBudget(ctx context.Context, coupleID string, total core.Money) (core.Budget, error)
	// ListCategories orders by sort_order ascending.
	ListCategories(ctx context.Context, coupleID string) ([]core.CategoryAllocation, error)
	UpsertCategory(ctx context.Context, coupleID string, category core.BudgetCategory, estimated core.Money, sortOrder int) (core.CategoryAllocation, error)
	// ListExpenses orders by created_at descending.
	ListExpenses(ctx context.Context, coupleID string) ([]core.Expense, error)
	InsertExpense(ctx context.Context, coupleID, createdBy string, e core.NewExpense) (core.Expense, error)
	UpdateExpense(ctx context.Context, coupleID, id string, p core.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, coupleID, id string) error
}

type EventStore interface {
	// ListEvents returns events with from <= date <= to ordered by date, then
	// time_start with unset times last.
	ListEvents(ctx context.Context, coupleID string, from, to core.Date) ([]core.Event, error)
	InsertEvents(ctx context.Context, coupleID, createdBy string, events []core.NewEvent) ([]core.Event, error)
	UpdateEvent(ctx context.Context, coupleID, id string, p core.EventPatch) (core.Event, error)
	DeleteEvent(ctx context.Context, coupleID, id string) error
}

// PhotoRecord is the insert payload of a photo row.
type PhotoRecord struct {
	Date        core.Date
	StoragePath string
	Caption     string
}

type PhotoStore interface {
	// ListPhotos returns the photos of one date, newest first.
	ListPhotos(ctx context.Context, coupleID string, date core.Date) ([]core.Photo, error)
	// PhotoDates returns the distinct dates in [from, to] having photos.
	PhotoDates(ctx context.Context, coupleID string, from, to core.Date) ([]core.Date, error)
	InsertPhoto(ctx context.Context, coupleID, uploadedBy string, rec PhotoRecord) (core.Photo, error)
	DeletePhoto(ctx context.Context, coupleID, id string) error
}

type ObjectStore interface {
	Upload(ctx context.Context, path string, body io.Reader, contentType string) error
	// Remove deletes the objects; a path that does not exist is not an error.
	Remove(ctx context.Context, paths ...string) error
	CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// ChangeKind is the row operation a notification reports.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// Change is a row-level notification. Consumers only rely on its arrival.
type Change struct {
	Table    core.Table `json:"table"`
	Kind     ChangeKind `json:"kind"`
	CoupleID string     `json:"couple_id"`
	RecordID string     `json:"record_id,omitempty"`
	At       time.Time  `json:"at"`
}

// Subscription is a live realtime channel.
type Subscription interface {
	Close() error
}

type ChangeFeed interface {
	// Subscribe delivers every change on the given tables for one couple.
	// Delivery is at least once.
	Subscribe(ctx context.Context, coupleID string, tables []core.Table, handler func(Change)) (Subscription, error)
}

// Publisher emits changes; implemented by the feed adapters.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// AuthEvent is an authentication state transition.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthSession is the provider's view of a signed-in user.
type AuthSession struct {
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

type AuthProvider interface {
	// GetSession returns nil without error when nobody is signed in.
	GetSession(ctx context.Context) (*AuthSession, error)
	SignInWithPassword(ctx context.Context, email, password string) (*AuthSession, error)
	SignOut(ctx context.Context) error
	// OnAuthStateChange registers a listener and returns its removal func.
	OnAuthStateChange(fn func(AuthEvent, *AuthSession)) (unsubscribe func())
}

// UserStore backs the password provider and admin bootstrap.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (core.User, error)
	// GetUserByEmail returns core.ErrNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
}

// Admin manages couples and their members.
type Admin interface {
	CreateCouple(ctx context.Context, name string) (core.Couple, error)
	AddMember(ctx context.Context, coupleID, userID, displayName string) (core.Membership, error)
	ListCouples(ctx context.Context) ([]core.Couple, error)
}
