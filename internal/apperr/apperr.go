// Package apperr defines the error taxonomy shared by the booking, check-in
// and boarding pass flows. Handlers translate a Kind into an HTTP status;
// everything below the handler layer returns these values (possibly
// wrapped) so callers can branch with errors.Is and KindOf.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindTiming
	KindRenderFailed
	KindTransient
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindTiming:
		return "timing"
	case KindRenderFailed:
		return "render_failed"
	case KindTransient:
		return "transient"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Error is a classified error. Two Errors match under errors.Is when their
// codes are equal, so sentinels keep matching after a constructor has added
// a more specific reason or a cause.
type Error struct {
	Kind   Kind
	Code   string
	Reason string
	Err    error

	// Hours is set on too_early errors: whole hours until check-in opens.
	Hours int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

func newErr(kind Kind, code, reason string) *Error {
	return &Error{Kind: kind, Code: code, Reason: reason}
}

var (
	ErrFlightNotFound   = newErr(KindNotFound, "flight_not_found", "flight not found")
	ErrBookingNotFound  = newErr(KindNotFound, "booking_not_found", "booking not found")
	ErrUserNotFound     = newErr(KindNotFound, "user_not_found", "user not found")
	ErrArtifactNotFound = newErr(KindNotFound, "boarding_pass_not_found", "boarding pass not found")

	ErrDuplicateBooking = newErr(KindConflict, "duplicate_booking", "you already have a booking on this flight")
	ErrCapacityExceeded = newErr(KindConflict, "capacity_exceeded", "flight is fully booked")
	ErrFlightExists     = newErr(KindConflict, "flight_exists", "a flight with this id already exists")

	ErrNotAuthorized = newErr(KindForbidden, "not_authorized", "you are not allowed to access this booking")
	ErrBanned        = newErr(KindForbidden, "banned", "user is banned")

	ErrFlightDeparted = newErr(KindTiming, "flight_departed", "flight has departed or is departing within 45 minutes")
	ErrTooEarly       = newErr(KindTiming, "too_early", "check-in is not open yet")

	ErrRenderFailed = newErr(KindRenderFailed, "render_failed", "failed to generate boarding pass")
	ErrTransient    = newErr(KindTransient, "transient", "external service unavailable")
	ErrInvalid      = newErr(KindInvalid, "invalid", "invalid request")
)

// TooEarly reports that check-in opens window before departure and that the
// caller has to wait hours more.
func TooEarly(windowHours, hours int) error {
	return &Error{
		Kind:   KindTiming,
		Code:   ErrTooEarly.Code,
		Reason: fmt.Sprintf("check-in opens %d hours before departure, try again in %d hours", windowHours, hours),
		Hours:  hours,
	}
}

// RenderFailed wraps a rendering cause.
func RenderFailed(err error) error {
	return &Error{Kind: KindRenderFailed, Code: ErrRenderFailed.Code, Reason: ErrRenderFailed.Reason, Err: err}
}

// Transient wraps a failure of an external collaborator.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Code: ErrTransient.Code, Reason: ErrTransient.Reason, Err: err}
}

// Invalid reports a client input problem with a precise reason.
func Invalid(reason string) error {
	return &Error{Kind: KindInvalid, Code: ErrInvalid.Code, Reason: reason}
}

// Banned reports a banned user with the stored reason, if any.
func Banned(reason string) error {
	msg := ErrBanned.Reason
	if reason != "" {
		msg = msg + ": " + reason
	}
	return &Error{Kind: KindForbidden, Code: ErrBanned.Code, Reason: msg}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reason returns the client-facing message for err. Internal errors get a
// generic message, and a wrapped cause is never part of it.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Reason
	}
	return "internal error"
}
