package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/feed"
	"github.com/jerardpelaez/wedding-calendar/internal/session"
)

func testConfig(t *testing.T, typ BackendType) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Type:              typ,
		SQLiteDBPath:      filepath.Join(dir, "planner.db"),
		ObjectStoreDir:    filepath.Join(dir, "objects"),
		ObjectStoreBucket: "wedding-photos",
		PublicBaseURL:     "http://localhost:8081",
		SignedURLTTL:      time.Hour,
		SigningKey:        []byte("test-signing-key-with-enough-bytes"),
		SessionTTL:        time.Hour,
		Calendar:          core.NewCalendar(2026, "en_US"),
	}
}

func TestCreateBackend_RejectsInvalidConfig(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	_, err := f.CreateBackend(ctx, Config{Type: "sheets"})
	require.Error(t, err)

	cfg := testConfig(t, PostgresBackend)
	_, err = f.CreateBackend(ctx, cfg)
	require.ErrorContains(t, err, "database URL is required")

	cfg = testConfig(t, MemoryBackend)
	cfg.SigningKey = nil
	_, err = f.CreateBackend(ctx, cfg)
	require.ErrorContains(t, err, "signing key is required")
}

func TestCreateBackend_MemoryUsesBroker(t *testing.T) {
	b, err := NewFactory(nil).CreateBackend(context.Background(), testConfig(t, MemoryBackend))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, MemoryBackend, b.Type)
	assert.IsType(t, &feed.Broker{}, b.Feed)
	assert.NotNil(t, b.Objects)
	assert.NotNil(t, b.Auth)
	assert.NoError(t, b.Ready(context.Background()))
}

func TestCreateBackend_SQLite(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(nil).CreateBackend(ctx, testConfig(t, SQLiteBackend))
	require.NoError(t, err)

	require.NoError(t, b.Ready(ctx))
	couple, err := b.Store.CreateCouple(ctx, "Ana & Ben")
	require.NoError(t, err)
	assert.NotEmpty(t, couple.ID)

	require.NoError(t, b.Close())
	assert.NoError(t, b.Close(), "second close is a no-op")
}

func TestBackend_SynchronizerRefetchesOnChange(t *testing.T) {
	ctx := context.Background()
	b, err := NewFactory(nil).CreateBackend(ctx, testConfig(t, MemoryBackend))
	require.NoError(t, err)
	defer b.Close()

	user, err := b.Auth.Register(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)
	couple, err := b.Store.CreateCouple(ctx, "Ana & Ben")
	require.NoError(t, err)
	_, err = b.Store.AddMember(ctx, couple.ID, user.ID, "Ana")
	require.NoError(t, err)

	resolver := session.NewResolver(b.Auth, b.Store, nil)
	defer resolver.Close()
	require.NoError(t, resolver.Initialize(ctx))
	require.NoError(t, resolver.SignIn(ctx, "ana@example.com", "correct-horse"))
	require.Eventually(t, func() bool { return resolver.State().IsAuthenticated }, time.Second, 10*time.Millisecond)
	assert.Equal(t, couple.ID, resolver.State().CoupleID)

	budget := b.NewBudgetSynchronizer(resolver)
	budget.FetchAll(ctx)
	require.Empty(t, budget.Status().Err)

	changed := make(chan struct{}, 1)
	require.NoError(t, budget.Subscribe(ctx, func() {
		budget.FetchAll(ctx)
		select {
		case changed <- struct{}{}:
		default:
		}
	}))
	defer budget.Unsubscribe()

	// A write from another process shares the same notifying store.
	_, err = b.Budget.InsertExpense(ctx, couple.ID, user.ID, core.NewExpense{
		Category:   core.BudgetVenueCatering,
		VendorName: "Villa Rosa",
		Amount:     core.FromMajor(4000),
	})
	require.NoError(t, err)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
	require.Len(t, budget.Expenses(), 1)
	assert.Equal(t, "Villa Rosa", budget.Expenses()[0].VendorName)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, GetBackendTypeStrings())
}
