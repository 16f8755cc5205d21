// Package identity talks to the Discord OAuth2 provider that vouches for
// user identities.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/southwestptfs/flightdeck/internal/apperr"
)

// Discord endpoints.
const (
	DiscordAuthorizeURL = "https://discord.com/api/oauth2/authorize"
	DiscordTokenURL     = "https://discord.com/api/oauth2/token"
	DiscordUserURL      = "https://discord.com/api/users/@me"
)

// ErrBadCode is returned when the provider rejects an authorization code.
var ErrBadCode = errors.New("authorization code rejected")

// Profile is the subset of the provider's user object we keep.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Provider exchanges authorization codes for user profiles.
type Provider interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (Profile, error)
}

// Discord implements Provider against the Discord API.
type Discord struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string

	AuthorizeEndpoint string
	TokenEndpoint     string
	UserEndpoint      string

	HTTP *http.Client
}

// NewDiscord returns a provider for the given OAuth application.
func NewDiscord(clientID, clientSecret, redirectURI string) *Discord {
	return &Discord{
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		RedirectURI:       redirectURI,
		Scope:             "identify",
		AuthorizeEndpoint: DiscordAuthorizeURL,
		TokenEndpoint:     DiscordTokenURL,
		UserEndpoint:      DiscordUserURL,
		HTTP:              &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether client credentials are present.
func (d *Discord) Configured() bool {
	return d.ClientID != "" && d.ClientSecret != "" && d.RedirectURI != ""
}

func (d *Discord) AuthorizeURL(state string) string {
	q := url.Values{
		"client_id":     {d.ClientID},
		"redirect_uri":  {d.RedirectURI},
		"response_type": {"code"},
		"scope":         {d.Scope},
		"state":         {state},
	}
	return d.AuthorizeEndpoint + "?" + q.Encode()
}

// Exchange trades code for an access token and fetches the user it
// belongs to. Provider outages are reported as apperr.Transient.
func (d *Discord) Exchange(ctx context.Context, code string) (Profile, error) {
	form := url.Values{
		"client_id":     {d.ClientID},
		"client_secret": {d.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {d.RedirectURI},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Profile{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := d.do(req, &token); err != nil {
		return Profile{}, err
	}
	if token.AccessToken == "" {
		return Profile{}, ErrBadCode
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, d.UserEndpoint, nil)
	if err != nil {
		return Profile{}, err
	}
	typ := token.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	req.Header.Set("Authorization", typ+" "+token.AccessToken)

	var p Profile
	if err := d.do(req, &p); err != nil {
		return Profile{}, err
	}
	if p.ID == "" {
		return Profile{}, apperr.Transient(errors.New("discord user without id"))
	}
	return p, nil
}

func (d *Discord) do(req *http.Request, out any) error {
	resp, err := d.HTTP.Do(req)
	if err != nil {
		return apperr.Transient(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Transient(err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return ErrBadCode
	case resp.StatusCode != http.StatusOK:
		return apperr.Transient(fmt.Errorf("discord %s: status %d", req.URL.Path, resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Transient(fmt.Errorf("decode discord response: %w", err))
	}
	return nil
}
