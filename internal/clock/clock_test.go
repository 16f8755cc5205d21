package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)
	c.Advance(90 * time.Minute)
	if got, want := c.Now(), start.Add(90*time.Minute); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
	c.Set(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Set did not take effect: %v", c.Now())
	}
}

func TestRealIsUTC(t *testing.T) {
	if loc := Real().Now().Location(); loc != time.UTC {
		t.Fatalf("Real().Now() location = %v, want UTC", loc)
	}
}
