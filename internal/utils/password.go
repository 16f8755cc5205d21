package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIToken is a bearer credential for bots and staff tools, written as
// "<userID>.<secret>". Only the bcrypt hash of the secret is stored.
type APIToken struct {
	Raw  string
	Hash string
}

// NewAPIToken issues a fresh token for userID and hashes its secret with
// the given bcrypt cost.
func NewAPIToken(userID string, cost int) (APIToken, error) {
	secret, err := RandomHex(24)
	if err != nil {
		return APIToken{}, err
	}
	hash, err := HashSecret(secret, cost)
	if err != nil {
		return APIToken{}, err
	}
	return APIToken{Raw: userID + "." + secret, Hash: hash}, nil
}

// SplitAPIToken separates a raw API token into user id and secret. Session
// JWTs contain two dots and never split.
func SplitAPIToken(raw string) (userID, secret string, ok bool) {
	userID, secret, ok = strings.Cut(raw, ".")
	if !ok || userID == "" || secret == "" || strings.Contains(secret, ".") {
		return "", "", false
	}
	return userID, secret, true
}

// HashSecret returns bcrypt hash using the given cost.
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret safely compares bcrypt hash and plain secret.
func VerifySecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
