package repository

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/southwestptfs/flightdeck/internal/database"
)

// CodeGenerator draws confirmation codes uniformly from Alphabet using
// crypto/rand.
type CodeGenerator struct {
	Alphabet    string
	Length      int
	MaxAttempts int
}

// DefaultCodes issues 6-character uppercase alphanumeric codes.
var DefaultCodes = CodeGenerator{
	Alphabet:    "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
	Length:      6,
	MaxAttempts: 64,
}

// Draw returns one random code.
func (g CodeGenerator) Draw() (string, error) {
	out := make([]byte, g.Length)
	limit := big.NewInt(int64(len(g.Alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = g.Alphabet[n.Int64()]
	}
	return string(out), nil
}

// NewTx draws codes until one is not yet issued. Every retry is a fresh
// draw. It gives up with ErrCodeSpaceExhausted after MaxAttempts draws.
func (g CodeGenerator) NewTx(ctx context.Context, q database.DBTX, bookings *BookingRepo) (string, error) {
	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		code, err := g.Draw()
		if err != nil {
			return "", err
		}
		taken, err := bookings.CodeExistsTx(ctx, q, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
