package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/southwestptfs/flightdeck/internal/apperr"
	"github.com/southwestptfs/flightdeck/internal/clock"
	"github.com/southwestptfs/flightdeck/internal/config"
	"github.com/southwestptfs/flightdeck/internal/logger"
	"github.com/southwestptfs/flightdeck/internal/model"
	"github.com/southwestptfs/flightdeck/internal/ttlstore"
	"github.com/southwestptfs/flightdeck/internal/utils"
)

type stubUsers map[string]model.User

func (s stubUsers) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := s[id]
	if !ok {
		return model.User{}, apperr.ErrUserNotFound
	}
	return u, nil
}

type stubBans map[string]string

func (s stubBans) Lookup(_ context.Context, id string) (model.BannedUser, bool, error) {
	reason, ok := s[id]
	return model.BannedUser{UserID: id, Reason: reason}, ok, nil
}

func serve(t *testing.T, a *Authenticator, header string, extra ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	mws := append([]echo.MiddlewareFunc{a.Authenticate()}, extra...)
	e.GET("/me", func(c echo.Context) error {
		u, _ := CurrentUser(c)
		return c.String(http.StatusOK, UserID(c)+":"+u.Username)
	}, mws...)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	api, err := utils.NewAPIToken("2", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := stubUsers{
		"1": {ID: "1", Username: "pax"},
		"2": {ID: "2", Username: "bot", IsBot: true, APITokenHash: api.Hash},
		"3": {ID: "3", Username: "troll"},
	}
	a := &Authenticator{Secret: "s3cret", Users: users, Bans: stubBans{"3": "griefing"}, Log: logger.Discard()}

	session, _ := utils.NewSessionToken("s3cret", "1", "pax", time.Hour, time.Now())
	banned, _ := utils.NewSessionToken("s3cret", "3", "troll", time.Hour, time.Now())
	ghost, _ := utils.NewSessionToken("s3cret", "404", "ghost", time.Hour, time.Now())

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"session", "Bearer " + session.Token, http.StatusOK, "1:pax"},
		{"api token", "Bearer " + api.Raw, http.StatusOK, "2:bot"},
		{"wrong api secret", "Bearer 2.deadbeef", http.StatusUnauthorized, ""},
		{"unknown user", "Bearer " + ghost.Token, http.StatusUnauthorized, ""},
		{"garbage", "Bearer nonsense", http.StatusUnauthorized, ""},
		{"banned", "Bearer " + banned.Token, http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, a, tc.header)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body = %q", rec.Body)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	users := stubUsers{
		"1": {ID: "1", Username: "pax"},
		"2": {ID: "2", Username: "crew", IsFlightStaff: true},
	}
	a := &Authenticator{Secret: "s3cret", Users: users, Bans: stubBans{}, Log: logger.Discard()}
	pax, _ := utils.NewSessionToken("s3cret", "1", "pax", time.Hour, time.Now())
	crew, _ := utils.NewSessionToken("s3cret", "2", "crew", time.Hour, time.Now())

	guard := RequireRole(model.RoleStaff, model.RoleFlightStaff)
	if rec := serve(t, a, "Bearer "+pax.Token, guard); rec.Code != http.StatusForbidden {
		t.Fatalf("passenger = %d", rec.Code)
	}
	if rec := serve(t, a, "Bearer "+crew.Token, guard); rec.Code != http.StatusOK {
		t.Fatalf("flight staff = %d", rec.Code)
	}
}

func TestResponseCache(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))
	rc := &ResponseCache{
		Cfg:   config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: 15 * time.Second, MaxBodyBytes: 64},
		Store: ttlstore.NewMemory(clk),
		Clock: clk,
		Log:   logger.Discard(),
	}
	calls := 0
	e := echo.New()
	e.GET("/flights", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, []string{"SWA100"})
	}, rc.Middleware())
	e.GET("/big", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, strings.Repeat("x", 100))
	}, rc.Middleware())

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	first := get("/flights")
	clk.Advance(5 * time.Second)
	second := get("/flights")
	if calls != 1 || first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("calls = %d, cache %q then %q", calls, first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() || second.Header().Get("Age") != "5" {
		t.Fatalf("hit body %q age %q, want %q age 5", second.Body, second.Header().Get("Age"), first.Body)
	}
	if !strings.HasPrefix(second.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		t.Fatalf("content type = %q", second.Header().Get(echo.HeaderContentType))
	}

	clk.Advance(11 * time.Second)
	if get("/flights"); calls != 2 {
		t.Fatalf("expired entry served, calls = %d", calls)
	}

	get("/big")
	get("/big")
	if calls != 4 {
		t.Fatalf("oversized body was cached, calls = %d", calls)
	}
}

func TestDisabledLimitersPassThrough(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.Use(NewTokenBucket(config.RateLimitConfig{}, nil, logger.Discard()))
	e.Use(NewRedisCache(config.CacheConfig{}, nil, logger.Discard()))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}
