package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/feed"
	"github.com/jerardpelaez/wedding-calendar/internal/storage/memory"
)

func TestSubscribeRefetchesOnChange(t *testing.T) {
	ctx := context.Background()
	broker := feed.NewBroker(feed.DefaultQueueSize, nil, nil)
	defer broker.Close()
	store := memory.New()
	notifier := feed.NewNotifier(broker, nil)

	mine := NewBudgetSynchronizer(notifier.Budget(store), Deps{Session: signedIn("c1", "u1"), Feed: broker})
	partner := NewBudgetSynchronizer(notifier.Budget(store), Deps{Session: signedIn("c1", "u2"), Feed: broker})
	mine.FetchAll(ctx)

	var refetches atomic.Int32
	require.NoError(t, mine.Subscribe(ctx, func() {
		refetches.Add(1)
		mine.FetchAll(context.Background())
	}))
	assert.True(t, mine.Subscribed())

	_, err := partner.CreateExpense(ctx, core.NewExpense{Category: core.BudgetMiscellaneous, VendorName: "Cake", Amount: core.FromMajor(40)})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(mine.Expenses()) == 1 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, refetches.Load(), int32(1))
}

func TestSubscribeReplacesAndUnsubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	broker := feed.NewBroker(feed.DefaultQueueSize, nil, nil)
	defer broker.Close()
	s := NewEventsSynchronizer(memory.New(), core.Calendar{}, Deps{Session: signedIn("c1", "u1"), Feed: broker})

	require.NoError(t, s.Subscribe(ctx, func() {}))
	require.NoError(t, s.Subscribe(ctx, func() {}))
	assert.Equal(t, 1, broker.Subscribers(), "second subscribe releases the first channel")

	require.NoError(t, s.Unsubscribe())
	require.NoError(t, s.Unsubscribe())
	assert.Equal(t, 0, broker.Subscribers())
	assert.False(t, s.Subscribed())
}

func TestSubscribeWithoutTenantIsNoop(t *testing.T) {
	broker := feed.NewBroker(feed.DefaultQueueSize, nil, nil)
	defer broker.Close()
	s := NewPhotosSynchronizer(memory.New(), newFakeObjects(), Deps{Session: &fakeSession{}, Feed: broker}, PhotoOptions{})

	require.NoError(t, s.Subscribe(context.Background(), func() {}))
	assert.Equal(t, 0, broker.Subscribers())
	assert.False(t, s.Subscribed())
}
