package boarding

import "testing"

func fill(groups []string, per int) []Position {
	var out []Position
	for _, g := range groups {
		for n := 1; n <= per; n++ {
			out = append(out, Position{Group: g, Number: n})
		}
	}
	return out
}

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		taken []Position
		want  string
	}{
		{"empty flight", nil, "A1"},
		{"gap is reused", []Position{{"A", 1}, {"A", 3}}, "A2"},
		{"A full", fill([]string{"A"}, 60), "B1"},
		{"A and B full", fill([]string{"A", "B"}, 60), "C1"},
		{"saturated", fill([]string{"A", "B", "C"}, 60), "C60"},
		{"saturated with overflow duplicates", append(fill([]string{"A", "B", "C"}, 60), Position{"C", 60}), "C60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultLayout.Next(tt.taken).String(); got != tt.want {
				t.Fatalf("Next() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextIsPure(t *testing.T) {
	taken := []Position{{"A", 1}}
	first := DefaultLayout.Next(taken)
	second := DefaultLayout.Next(taken)
	if first != second || len(taken) != 1 {
		t.Fatalf("Next changed between calls: %v vs %v", first, second)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("B17")
	if err != nil || p != (Position{"B", 17}) {
		t.Fatalf("Parse(B17) = %v, %v", p, err)
	}
	for _, bad := range []string{"", "B", "17", "b1", "B0", "Bx"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
	if (Position{}).String() != "" {
		t.Fatal("zero position should render empty")
	}
}
