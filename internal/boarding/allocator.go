package boarding

// Layout is the pool of boarding slots on a flight: each group in order,
// each numbered 1..PerGroup.
type Layout struct {
	Groups   []string
	PerGroup int
}

// DefaultLayout is the open-seating pool: groups A, B and C of 60 each.
var DefaultLayout = Layout{Groups: []string{"A", "B", "C"}, PerGroup: 60}

// Capacity is the number of distinct slots in the layout.
func (l Layout) Capacity() int { return len(l.Groups) * l.PerGroup }

// Last is the saturation slot handed out once every slot is taken.
func (l Layout) Last() Position {
	if len(l.Groups) == 0 || l.PerGroup < 1 {
		return Position{}
	}
	return Position{Group: l.Groups[len(l.Groups)-1], Number: l.PerGroup}
}

// Next returns the first slot, in group order then ascending number, that
// is not in taken. When the pool is exhausted it returns Last instead of
// failing. Next has no side effects; calling it twice with the same input
// gives the same answer.
func (l Layout) Next(taken []Position) Position {
	used := make(map[Position]struct{}, len(taken))
	for _, p := range taken {
		used[p] = struct{}{}
	}
	for _, g := range l.Groups {
		for n := 1; n <= l.PerGroup; n++ {
			p := Position{Group: g, Number: n}
			if _, ok := used[p]; !ok {
				return p
			}
		}
	}
	return l.Last()
}
