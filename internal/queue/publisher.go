package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher hands an event to the relay transport.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// AMQPPublisher publishes events as persistent messages on a durable
// RabbitMQ queue via the default exchange. Each publish opens its own
// connection, so a broker restart never leaves a stale channel behind.
type AMQPPublisher struct {
	URL   string
	Queue string
	Log   *slog.Logger
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error { return nil }

// NATSPublisher publishes events on a NATS subject.
type NATSPublisher struct {
	Conn    *nats.Conn
	Subject string
}

// ConnectNATS dials url with unlimited reconnects.
func ConnectNATS(url string, log *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("flightdeck"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(p.Subject)
	msg.Header.Set(nats.MsgIdHdr, ev.ID)
	msg.Data = body
	if err := p.Conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error { return p.Conn.Drain() }

// DirectPublisher skips the broker and delivers in-process with retries.
// Used when no broker is configured.
type DirectPublisher struct {
	Deliverer Deliverer
	Backoff   Backoff
}

// Publish implements Publisher.
func (p *DirectPublisher) Publish(ctx context.Context, ev Event) error {
	return DeliverWithRetry(ctx, p.Deliverer, ev, p.Backoff)
}

func (p *DirectPublisher) Close() error { return nil }
