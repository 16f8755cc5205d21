package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/southwestptfs/flightdeck/internal/airport"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/queue"
)

// Relay receives best-effort notifications after a booking state change
// has committed. Implementations must not block the caller for long and
// their errors are only ever logged.
type Relay interface {
	BookingCreated(b model.Booking, f model.Flight) error
	BookingCancelled(b model.Booking, f model.Flight, manual bool) error
	CheckedIn(b model.Booking, f model.Flight, pass []byte) error
}

// NopRelay drops every notification. It is used when no broker is
// configured.
type NopRelay struct{}

func (NopRelay) BookingCreated(model.Booking, model.Flight) error         { return nil }
func (NopRelay) BookingCancelled(model.Booking, model.Flight, bool) error { return nil }
func (NopRelay) CheckedIn(model.Booking, model.Flight, []byte) error      { return nil }

// ErrRelayFull is returned when the notifier buffer is saturated and the
// event was dropped.
var ErrRelayFull = errors.New("relay buffer full")

// Notifier turns booking changes into queue events and hands them to a
// Publisher from a single background goroutine. Enqueueing never blocks:
// when the buffer is full the event is dropped and logged.
type Notifier struct {
	Publisher queue.Publisher
	Airports  *airport.Table
	Clock     clock.Clock
	Log       *slog.Logger
	Timeout   time.Duration

	events chan queue.Event
}

// NewNotifier returns a Notifier with a buffer of size events.
func NewNotifier(p queue.Publisher, airports *airport.Table, c clock.Clock, log *slog.Logger, timeout time.Duration, size int) *Notifier {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		Publisher: p,
		Airports:  airports,
		Clock:     c,
		Log:       log,
		Timeout:   timeout,
		events:    make(chan queue.Event, size),
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// still buffered with a fresh deadline per event.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case ev := <-n.events:
			n.publish(ctx, ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-n.events:
					n.publish(context.Background(), ev)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) publish(ctx context.Context, ev queue.Event) {
	ctx, cancel := context.WithTimeout(ctx, n.Timeout)
	defer cancel()
	if err := n.Publisher.Publish(ctx, ev); err != nil {
		n.Log.Error("relay publish failed",
			slog.String("event_id", ev.ID), slog.String("kind", string(ev.Kind)), slog.Any("err", err))
		return
	}
	n.Log.Debug("relay event published", slog.String("event_id", ev.ID), slog.String("kind", string(ev.Kind)))
}

func (n *Notifier) enqueue(kind queue.Kind, payload any) error {
	ev, err := queue.NewEvent(kind, payload, n.Clock.Now())
	if err != nil {
		return err
	}
	select {
	case n.events <- ev:
		return nil
	default:
		n.Log.Error("relay buffer full, event dropped",
			slog.String("event_id", ev.ID), slog.String("kind", string(kind)))
		return ErrRelayFull
	}
}

// place renders an airport as "CODE, State (IATA)", or just the code when
// the airport is unknown.
func (n *Notifier) place(code string) string {
	a, ok := n.Airports.Find(code)
	if !ok {
		return code
	}
	return fmt.Sprintf("%s, %s (%s)", code, a.State, a.IATA)
}

func (n *Notifier) BookingCreated(b model.Booking, f model.Flight) error {
	aircraft := f.Aircraft
	if aircraft == "" {
		aircraft = "Unknown"
	}
	return n.enqueue(queue.KindBookingCreated, queue.BookingPayload{
		PassengerID:  b.UserID,
		Flight:       f.ID,
		Departing:    n.place(f.Origin),
		Arriving:     n.place(f.Destination),
		Aircraft:     aircraft,
		Confirmation: b.Confirmation,
		CheckInTime:  f.Departure.UTC().Format(time.RFC3339),
	})
}

func (n *Notifier) BookingCancelled(b model.Booking, f model.Flight, manual bool) error {
	return n.enqueue(queue.KindBookingCancelled, queue.CancelPayload{
		PassengerID:  b.UserID,
		Flight:       f.ID,
		Departing:    n.place(f.Origin),
		Arriving:     n.place(f.Destination),
		Confirmation: b.Confirmation,
		Manual:       manual,
	})
}

func (n *Notifier) CheckedIn(b model.Booking, f model.Flight, pass []byte) error {
	return n.enqueue(queue.KindCheckedIn, queue.CheckinPayload{
		PassengerID:  b.UserID,
		Flight:       f.ID,
		Confirmation: b.Confirmation,
		Bytes:        base64.StdEncoding.EncodeToString(pass),
	})
}
