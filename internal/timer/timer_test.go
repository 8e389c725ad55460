package timer

import (
	"testing"
	"time"
)

func TestManualFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	ch := m.Wake(start.Add(time.Hour))
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	m.Advance(30 * time.Minute)
	select {
	case <-ch:
		t.Fatal("fired halfway to deadline")
	default:
	}

	m.Advance(30 * time.Minute)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("did not fire at deadline")
	}
}

func TestManualPastDeadlineFiresImmediately(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	ch := m.Wake(start.Add(-time.Minute))
	select {
	case <-ch:
	default:
		t.Fatal("past deadline should fire immediately")
	}
}

func TestClockPastDeadline(t *testing.T) {
	ch := Clock{}.Wake(time.Now().Add(-time.Second))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("clock did not fire for past deadline")
	}
}
