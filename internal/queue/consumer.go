package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer delivers broker messages to a Deliverer.
type Consumer struct {
	Deliverer Deliverer
	Backoff   Backoff
	Log       *slog.Logger
}

// handle decodes and delivers one message body. It reports false when the
// message should be dropped.
func (c *Consumer) handle(ctx context.Context, body []byte) bool {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		c.Log.Error("relay: undecodable message dropped", slog.String("error", err.Error()))
		return false
	}
	if err := DeliverWithRetry(ctx, c.Deliverer, ev, c.Backoff); err != nil {
		c.Log.Error("relay: delivery failed, dropping event",
			slog.String("event_id", ev.ID), slog.String("kind", string(ev.Kind)),
			slog.Bool("permanent", IsPermanent(err)), slog.String("error", err.Error()))
		return false
	}
	return true
}

// RunAMQP consumes queue from the broker at url until ctx ends,
// reconnecting with capped exponential backoff when the connection drops.
func (c *Consumer) RunAMQP(ctx context.Context, url, queue string) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			c.Log.Warn("relay: dial broker failed", slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeAMQP(ctx, conn, queue); err != nil && ctx.Err() == nil {
			c.Log.Warn("relay: consume loop ended, reconnecting", slog.String("error", err.Error()))
			sleep(ctx, 2*time.Second)
		}
	}
}

func (c *Consumer) consumeAMQP(ctx context.Context, conn *amqp.Connection, queue string) error {
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(16, 0, false); err != nil {
		c.Log.Warn("relay: set QoS failed", slog.String("error", err.Error()))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if c.handle(ctx, d.Body) {
				_ = d.Ack(false)
			} else {
				_ = d.Nack(false, false) // do not requeue; the retry budget is spent
			}
		}
	}
}

// RunNATS consumes subject in a queue group until ctx ends. Core NATS
// delivery is at-most-once; retries happen inside handle.
func (c *Consumer) RunNATS(ctx context.Context, nc *nats.Conn, subject, group string) error {
	sub, err := nc.QueueSubscribe(subject, group, func(m *nats.Msg) {
		c.handle(ctx, m.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	<-ctx.Done()
	return sub.Drain()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
