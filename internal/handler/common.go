package handler // handler defines http handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/middleware"
)

// RequestValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request bodies.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{v: validator.New()}
}

func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// errBadBody marks a failed bind or validation so respond can answer 400
// with the binding details.
type errBadBody struct{ err error }

func (e errBadBody) Error() string { return e.err.Error() }

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errBadBody{errors.New("invalid request body")}
	}
	if err := c.Validate(req); err != nil {
		return errBadBody{err}
	}
	return nil
}

// getUserID returns the authenticated user id. Routes using it sit behind
// Authenticate, so a missing id is a wiring bug.
func getUserID(c echo.Context) (string, error) {
	if id, ok := c.Get(middleware.ContextUserID).(string); ok && id != "" {
		return id, nil
	}
	return "", errors.New("user_id missing from context")
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindTiming, apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindTransient:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respond writes err as a JSON error body. Internal errors are logged in
// full and answered generically.
func respond(c echo.Context, log *slog.Logger, err error) error {
	var bad errBadBody
	if errors.As(err, &bad) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": bad.Error()})
	}
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindRenderFailed {
		log.Error("request failed",
			slog.String("method", c.Request().Method), slog.String("path", c.Path()),
			slog.String("user_id", middleware.UserID(c)), slog.Any("err", err))
	}
	body := echo.Map{"error": apperr.Reason(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["code"] = ae.Code
		if ae.Hours > 0 {
			body["hours"] = ae.Hours
		}
	}
	return c.JSON(statusOf(kind), body)
}
