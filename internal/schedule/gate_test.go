package schedule

import (
	"context"
	"testing"
	"time"

	"NewsPoster/internal/domain"
)

type memWindows struct {
	windows map[string]string // time_of_day -> last_fired_date
}

func newMemWindows() *memWindows {
	return &memWindows{windows: map[string]string{}}
}

func (m *memWindows) EnsureWindows(_ context.Context, times []string) error {
	next := map[string]string{}
	for _, t := range times {
		next[t] = m.windows[t]
	}
	m.windows = next
	return nil
}

func (m *memWindows) Windows(_ context.Context) ([]domain.FiringWindow, error) {
	out := make([]domain.FiringWindow, 0, len(m.windows))
	for tod, fired := range m.windows {
		out = append(out, domain.FiringWindow{TimeOfDay: tod, LastFiredDate: fired})
	}
	return out, nil
}

func (m *memWindows) MarkFired(_ context.Context, timeOfDay, date string) error {
	m.windows[timeOfDay] = date
	return nil
}

func newTestGate(t *testing.T, times []string, loc *time.Location) (*Gate, *memWindows) {
	t.Helper()
	store := newMemWindows()
	gate, err := NewGate(context.Background(), store, times, loc, nil)
	if err != nil {
		t.Fatalf("NewGate error: %v", err)
	}
	return gate, store
}

func TestShouldFireBeforeWindow(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t, []string{"09:00"}, time.UTC)

	now := time.Date(2025, time.June, 2, 8, 59, 0, 0, time.UTC)
	w, err := gate.ShouldFire(context.Background(), now)
	if err != nil {
		t.Fatalf("ShouldFire error: %v", err)
	}
	if w != nil {
		t.Fatalf("window fired before its time: %+v", w)
	}
}

func TestShouldFireCatchesMissedWindow(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t, []string{"09:00"}, time.UTC)

	// A 09:00 window checked late at 09:07 still fires.
	now := time.Date(2025, time.June, 2, 9, 7, 0, 0, time.UTC)
	w, err := gate.ShouldFire(context.Background(), now)
	if err != nil {
		t.Fatalf("ShouldFire error: %v", err)
	}
	if w == nil || w.TimeOfDay != "09:00" {
		t.Fatalf("expected 09:00 window, got %+v", w)
	}
}

func TestWindowFiresAtMostOncePerDay(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t, []string{"09:00"}, time.UTC)
	ctx := context.Background()

	now := time.Date(2025, time.June, 2, 9, 30, 0, 0, time.UTC)
	w, err := gate.ShouldFire(ctx, now)
	if err != nil || w == nil {
		t.Fatalf("first check: window=%+v err=%v", w, err)
	}
	if err := gate.MarkFired(ctx, *w, now); err != nil {
		t.Fatalf("MarkFired error: %v", err)
	}

	later := now.Add(2 * time.Hour)
	w, err = gate.ShouldFire(ctx, later)
	if err != nil {
		t.Fatalf("second check error: %v", err)
	}
	if w != nil {
		t.Fatalf("window fired twice the same day: %+v", w)
	}

	// Next day it is eligible again.
	nextDay := now.Add(24 * time.Hour)
	w, err = gate.ShouldFire(ctx, nextDay)
	if err != nil || w == nil {
		t.Fatalf("next-day check: window=%+v err=%v", w, err)
	}
}

func TestEarliestEligibleWindowWins(t *testing.T) {
	t.Parallel()

	gate, _ := newTestGate(t, []string{"15:00", "09:00"}, time.UTC)
	ctx := context.Background()

	// Both windows are overdue; the earlier one fires first, one per call.
	now := time.Date(2025, time.June, 2, 16, 0, 0, 0, time.UTC)
	w, err := gate.ShouldFire(ctx, now)
	if err != nil || w == nil {
		t.Fatalf("first check: window=%+v err=%v", w, err)
	}
	if w.TimeOfDay != "09:00" {
		t.Fatalf("expected 09:00 first, got %s", w.TimeOfDay)
	}
	if err := gate.MarkFired(ctx, *w, now); err != nil {
		t.Fatalf("MarkFired error: %v", err)
	}

	w, err = gate.ShouldFire(ctx, now)
	if err != nil || w == nil {
		t.Fatalf("second check: window=%+v err=%v", w, err)
	}
	if w.TimeOfDay != "15:00" {
		t.Fatalf("expected 15:00 second, got %s", w.TimeOfDay)
	}
}

func TestUnfiredWindowSurvivesCrash(t *testing.T) {
	t.Parallel()

	// MarkFired never called: the same window stays eligible, as after a
	// crash mid-cycle.
	gate, _ := newTestGate(t, []string{"09:00"}, time.UTC)
	ctx := context.Background()
	now := time.Date(2025, time.June, 2, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		w, err := gate.ShouldFire(ctx, now)
		if err != nil || w == nil {
			t.Fatalf("check %d: window=%+v err=%v", i, w, err)
		}
	}
}

func TestDayBoundaryUsesConfiguredZone(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	gate, _ := newTestGate(t, []string{"09:00"}, tokyo)
	ctx := context.Background()

	// 01:00 UTC on June 2 is 10:00 June 2 in Tokyo: the window is due.
	now := time.Date(2025, time.June, 2, 1, 0, 0, 0, time.UTC)
	w, err := gate.ShouldFire(ctx, now)
	if err != nil || w == nil {
		t.Fatalf("tokyo morning: window=%+v err=%v", w, err)
	}
	if err := gate.MarkFired(ctx, *w, now); err != nil {
		t.Fatalf("MarkFired error: %v", err)
	}

	// 16:00 UTC the same UTC day is already 01:00 June 3 in Tokyo, but the
	// 09:00 window has not passed on that local day.
	later := time.Date(2025, time.June, 2, 16, 0, 0, 0, time.UTC)
	w, err = gate.ShouldFire(ctx, later)
	if err != nil {
		t.Fatalf("ShouldFire error: %v", err)
	}
	if w != nil {
		t.Fatalf("window fired before local 09:00: %+v", w)
	}
}

func TestSpringForwardGapShiftsWindowLater(t *testing.T) {
	t.Parallel()

	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	gate, _ := newTestGate(t, []string{"02:30"}, newYork)
	ctx := context.Background()

	// 2025-03-09: clocks jump from 02:00 EST to 03:00 EDT, so 02:30 does
	// not exist. The window must not open before the transition.
	before := time.Date(2025, time.March, 9, 1, 45, 0, 0, newYork)
	w, err := gate.ShouldFire(ctx, before)
	if err != nil {
		t.Fatalf("ShouldFire error: %v", err)
	}
	if w != nil {
		t.Fatalf("window fired inside the gap at %v: %+v", before, w)
	}

	// After the jump the shifted occurrence (03:30 EDT) has passed.
	after := time.Date(2025, time.March, 9, 3, 45, 0, 0, newYork)
	w, err = gate.ShouldFire(ctx, after)
	if err != nil || w == nil {
		t.Fatalf("post-transition: window=%+v err=%v", w, err)
	}
	if w.TimeOfDay != "02:30" {
		t.Fatalf("unexpected window %+v", w)
	}
}

func TestNewGateRejectsMalformedTimes(t *testing.T) {
	t.Parallel()

	_, err := NewGate(context.Background(), newMemWindows(), []string{"25:99"}, time.UTC, nil)
	if err == nil {
		t.Fatal("expected error for malformed post time")
	}
}
