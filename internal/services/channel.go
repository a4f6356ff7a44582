package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// channel holds at most one realtime subscription.
type channel struct {
	feed    remote.ChangeFeed
	tables  []core.Table
	logger  *applog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	sub remote.Subscription
}

// open releases any live subscription before opening a new one.
func (c *channel) open(ctx context.Context, coupleID string, onChange func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			c.logger.WarnContext(ctx, "Closing previous subscription failed", applog.FieldError, err)
		}
		c.sub = nil
	}
	sub, err := c.feed.Subscribe(ctx, coupleID, c.tables, func(ch remote.Change) {
		c.metrics.Notification(string(ch.Table), "handled")
		c.logger.Debug("Change received",
			applog.FieldTable, string(ch.Table),
			applog.FieldChange, string(ch.Kind),
			applog.FieldRecordID, ch.RecordID)
		onChange()
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.sub = sub
	c.logger.InfoContext(ctx, "Realtime channel opened", applog.FieldCoupleID, coupleID)
	return nil
}

func (c *channel) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Close()
	c.sub = nil
	return err
}

func (c *channel) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sub != nil
}
