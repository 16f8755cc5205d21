package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/utils"
)

// Context keys set by Authenticate.
const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// UserLookup loads users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// BanLookup reports whether a user is banned.
type BanLookup interface {
	Lookup(ctx context.Context, userID string) (model.BannedUser, bool, error)
}

// Authenticator validates bearer credentials. Two forms are accepted: a
// session JWT issued after login, and an API token "<userID>.<secret>"
// whose secret is checked against the stored bcrypt hash.
type Authenticator struct {
	Secret string
	Users  UserLookup
	Bans   BanLookup
	Log    *slog.Logger
}

// Authenticate returns an Echo middleware that resolves the caller, rejects
// banned users and stores the user under ContextUser and its id under
// ContextUserID.
func (a *Authenticator) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			ctx := c.Request().Context()

			u, err := a.resolve(ctx, raw)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindInternal && !errors.Is(err, utils.ErrInvalidToken) {
					a.Log.Error("authentication lookup failed", slog.Any("err", err), slog.String("ip", c.RealIP()))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
				a.Log.Info("unauthorized request", slog.String("ip", c.RealIP()), slog.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ban, banned, err := a.Bans.Lookup(ctx, u.ID)
			if err != nil {
				a.Log.Error("ban lookup failed", slog.String("user_id", u.ID), slog.Any("err", err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if banned {
				a.Log.Warn("banned user rejected",
					slog.String("user_id", u.ID), slog.String("reason", ban.Reason),
					slog.String("method", c.Request().Method), slog.String("path", c.Path()))
				return c.JSON(http.StatusForbidden, echo.Map{"error": apperr.Reason(apperr.Banned(ban.Reason))})
			}

			c.Set(ContextUserID, u.ID)
			c.Set(ContextUser, u)
			return next(c)
		}
	}
}

func (a *Authenticator) resolve(ctx context.Context, raw string) (model.User, error) {
	if id, secret, ok := utils.SplitAPIToken(raw); ok {
		u, err := a.Users.GetByID(ctx, id)
		if errors.Is(err, apperr.ErrUserNotFound) {
			return model.User{}, utils.ErrInvalidToken
		}
		if err != nil {
			return model.User{}, err
		}
		if u.APITokenHash == "" || !utils.VerifySecret(u.APITokenHash, secret) {
			return model.User{}, utils.ErrInvalidToken
		}
		return u, nil
	}

	claims, err := utils.ParseSessionToken(a.Secret, raw)
	if err != nil {
		return model.User{}, err
	}
	u, err := a.Users.GetByID(ctx, claims.Subject)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return model.User{}, utils.ErrInvalidToken
	}
	return u, err
}
