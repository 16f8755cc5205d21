// Package repository is the SQL data access layer. Domain "not found" and
// conflict cases are reported with the apperr sentinels; storage failures
// are wrapped with the operation that failed.
package repository

import "errors"

// ErrDuplicateKey is returned by inserts that hit a primary key or unique
// index. Callers decide which domain conflict it means.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrCodeSpaceExhausted is returned when no unused confirmation code could
// be drawn within the attempt budget.
var ErrCodeSpaceExhausted = errors.New("confirmation code space exhausted")
