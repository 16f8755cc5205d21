// Package boarding plans boarding group/position assignments. The planner
// keeps no state of its own: callers pass the positions already taken on a
// flight and persist whatever Next returns.
package boarding

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a boarding slot such as "B17".
type Position struct {
	Group  string
	Number int
}

// IsZero reports whether p is unassigned.
func (p Position) IsZero() bool { return p.Group == "" && p.Number == 0 }

func (p Position) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Group + strconv.Itoa(p.Number)
}

// Parse reads a position written as a single uppercase letter followed by a
// positive integer.
func Parse(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] < 'A' || s[0] > 'Z' {
		return Position{}, fmt.Errorf("invalid boarding position %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return Position{}, fmt.Errorf("invalid boarding position %q", s)
	}
	return Position{Group: s[:1], Number: n}, nil
}
