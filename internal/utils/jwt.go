package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand" // secure random bytes for API token secrets and OAuth state
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed session JWT along with its expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// SessionClaims are carried by every session token. The subject is the
// identity provider's user id.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned for tokens that fail signature, algorithm or
// expiry checks.
var ErrInvalidToken = errors.New("invalid token")

// NewSessionToken builds and signs an HS256 JWT for a user, valid for ttl
// from now.
func NewSessionToken(secret, userID, username string, ttl time.Duration, now time.Time) (SessionToken, error) {
	exp := now.UTC().Add(ttl)
	claims := SessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken validates raw and returns its claims. Only HMAC signed
// tokens are accepted.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		// reject anything that is not HMAC to block algorithm confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// RandomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
