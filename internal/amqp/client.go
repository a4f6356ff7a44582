// Package amqp carries row change notifications over a RabbitMQ topic
// exchange so processes sharing a database see each other's writes.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

var (
	_ remote.Publisher  = (*Client)(nil)
	_ remote.ChangeFeed = (*Client)(nil)
)

func NewClient(url, exchangeName string, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	c.conn, c.channel = conn, channel
	return nil
}

// Publish sends one change, reconnecting once on a dropped connection.
func (c *Client) Publish(ctx context.Context, change remote.Change) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", change.Table)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewChangeMessage(change)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, msg.RoutingKey(), body)
	if err != nil && isConnectionError(err) {
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting", applog.FieldError, err)
		if rerr := c.reconnect(); rerr == nil {
			err = c.publish(ctx, msg.RoutingKey(), body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published change",
		applog.FieldTable, string(msg.Table),
		applog.FieldCoupleID, msg.CoupleID,
		applog.FieldRecordID, msg.RecordID)
	return nil
}

func (c *Client) publish(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return errors.New("channel closed")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

func (c *Client) reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn, c.channel = nil, nil
	return c.connectLocked()
}

type subscription struct {
	channel  *amqp091.Channel
	consumer string
	once     sync.Once
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		if cerr := s.channel.Cancel(s.consumer, false); cerr != nil && !isConnectionError(cerr) {
			err = cerr
		}
		s.channel.Close()
	})
	return err
}

// Subscribe declares an exclusive auto-delete queue bound to the couple's
// routing keys and dispatches every delivery to handler on its own goroutine.
func (c *Client) Subscribe(ctx context.Context, coupleID string, tables []core.Table, handler func(remote.Change)) (remote.Subscription, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, errors.New("subscribe: connection closed")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, table := range tables {
		if err := ch.QueueBind(q.Name, RoutingKey(table, coupleID), c.exchangeName, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("bind queue to %s: %w", table, err)
		}
	}

	consumer := "planner-" + q.Name
	deliveries, err := ch.Consume(q.Name, consumer, true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	sub := &subscription{channel: ch, consumer: consumer}
	go func() {
		for d := range deliveries {
			msg, err := ChangeMessageFromJSON(d.Body)
			if err != nil {
				c.logger.Warn("Dropping malformed change message", applog.FieldError, err)
				continue
			}
			handler(msg.Change())
		}
	}()

	c.logger.InfoContext(ctx, "Subscribed to changes",
		applog.FieldCoupleID, coupleID,
		applog.FieldCount, len(tables),
		"queue", q.Name)
	return sub, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff doubles from one second up to maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "closed network connection", "channel closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Dial retries NewClient with exponential backoff until ctx ends.
func Dial(ctx context.Context, url, exchangeName string, logger *applog.Logger) (*Client, error) {
	for attempt := 0; ; attempt++ {
		c, err := NewClient(url, exchangeName, logger)
		if err == nil {
			return c, nil
		}
		if !isConnectionError(err) {
			return nil, err
		}
		wait := exponentialBackoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, "AMQP not reachable, retrying", applog.FieldError, err, "retry_in", wait.String())
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial AMQP: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}
