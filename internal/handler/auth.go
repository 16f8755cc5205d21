package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/identity"
	"github.com/southwestptfs/flightdeck/internal/middleware"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/repository"
	"github.com/southwestptfs/flightdeck/internal/ttlstore"
	"github.com/southwestptfs/flightdeck/internal/utils"
)

// stateTTL bounds how long a login may take between redirect and callback.
const stateTTL = 10 * time.Minute

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Provider identity.Provider
	States   ttlstore.Store
	Users    *repository.UserRepo
	Bans     middleware.BanLookup
	Clock    clock.Clock
	Log      *slog.Logger

	Secret       string
	SessionTTL   time.Duration
	BcryptCost   int
	BaseRedirect string
}

// ----- DTOs -----

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	User       model.User `json:"user"`
	Session    tokenPart  `json:"session"`
	RedirectTo string     `json:"redirectTo"`
}

func stateKey(state string) string { return "oauth_state:" + state }

// safeRedirect keeps post-login redirects on this site.
func (h *AuthHandler) safeRedirect(p string) string {
	if strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`) {
		return p
	}
	return h.BaseRedirect
}

// Login handles GET /v1/auth/login. It stores a one-time state and sends
// the browser to the identity provider.
func (h *AuthHandler) Login(c echo.Context) error {
	state, err := utils.RandomHex(16)
	if err != nil {
		return respond(c, h.Log, err)
	}
	redirect := h.safeRedirect(c.QueryParam("redirect_to"))
	if err := h.States.Set(c.Request().Context(), stateKey(state), redirect, stateTTL); err != nil {
		return respond(c, h.Log, err)
	}
	return c.Redirect(http.StatusFound, h.Provider.AuthorizeURL(state))
}

// Callback handles GET /v1/auth/callback. The state is consumed on first
// use, so a replayed callback is rejected.
func (h *AuthHandler) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	code, state := c.QueryParam("code"), c.QueryParam("state")
	if code == "" || state == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and state are required"})
	}
	redirect, err := h.States.Take(ctx, stateKey(state))
	if errors.Is(err, ttlstore.ErrNotFound) {
		h.Log.Warn("login with unknown state", slog.String("ip", c.RealIP()))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired state"})
	}
	if err != nil {
		return respond(c, h.Log, err)
	}

	p, err := h.Provider.Exchange(ctx, code)
	if errors.Is(err, identity.ErrBadCode) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "authorization code rejected"})
	}
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTransient {
			h.Log.Error("identity provider unavailable", slog.Any("err", err))
		}
		return respond(c, h.Log, err)
	}

	if ban, banned, err := h.Bans.Lookup(ctx, p.ID); err != nil {
		return respond(c, h.Log, err)
	} else if banned {
		h.Log.Warn("banned user login rejected", slog.String("user_id", p.ID), slog.String("reason", ban.Reason))
		return respond(c, h.Log, apperr.Banned(ban.Reason))
	}

	now := h.Clock.Now()
	err = h.Users.Upsert(ctx, model.User{
		ID:            p.ID,
		Username:      p.Username,
		Discriminator: p.Discriminator,
		Avatar:        p.Avatar,
	}, now)
	if err != nil {
		return respond(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, p.ID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	tok, err := utils.NewSessionToken(h.Secret, u.ID, u.Username, h.SessionTTL, now)
	if err != nil {
		return respond(c, h.Log, err)
	}
	h.Log.Info("user logged in", slog.String("user_id", u.ID))
	return c.JSON(http.StatusOK, loginResp{
		User:       u,
		Session:    tokenPart{Token: tok.Token, Expires: tok.Exp},
		RedirectTo: redirect,
	})
}

// Me handles GET /v1/auth/user.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, u)
}

// IssueAPIToken handles POST /v1/auth/token. The raw token is shown once;
// only its hash is stored and any previous token stops working.
func (h *AuthHandler) IssueAPIToken(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tok, err := utils.NewAPIToken(userID, h.BcryptCost)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Users.SetAPITokenHash(c.Request().Context(), userID, tok.Hash); err != nil {
		return respond(c, h.Log, err)
	}
	h.Log.Info("api token issued", slog.String("user_id", userID))
	return c.JSON(http.StatusCreated, echo.Map{"token": tok.Raw})
}
