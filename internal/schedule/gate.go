package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

// Gate decides whether a configured post time is due. A window fires at most
// once per calendar day in the configured timezone; fired state is persisted
// so a restart never double-fires and a crash mid-cycle leaves the window
// eligible to retry.
type Gate struct {
	store  ports.WindowStore
	loc    *time.Location
	logger *slog.Logger
}

// NewGate wires the persisted windows for the configured post times.
func NewGate(ctx context.Context, store ports.WindowStore, postTimes []string, loc *time.Location, logger *slog.Logger) (*Gate, error) {
	for _, t := range postTimes {
		if _, err := time.Parse("15:04", t); err != nil {
			return nil, fmt.Errorf("post time %q: %w", t, err)
		}
	}

	if err := store.EnsureWindows(ctx, postTimes); err != nil {
		return nil, fmt.Errorf("ensure windows: %w", err)
	}

	return &Gate{store: store, loc: loc, logger: logger}, nil
}

// ShouldFire returns the earliest window whose time of day has passed and
// which has not fired today, or nil when nothing is due. At most one window
// is returned per call; callers re-check on the next tick.
func (g *Gate) ShouldFire(ctx context.Context, now time.Time) (*domain.FiringWindow, error) {
	windows, err := g.store.Windows(ctx)
	if err != nil {
		return nil, fmt.Errorf("load windows: %w", err)
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].TimeOfDay < windows[j].TimeOfDay
	})

	local := now.In(g.loc)
	today := domain.DayKey(now, g.loc)

	for _, w := range windows {
		if w.LastFiredDate == today {
			continue
		}

		due, err := occurrence(w.TimeOfDay, local)
		if err != nil {
			return nil, err
		}
		if local.Before(due) {
			continue
		}

		g.debug("window due", "time_of_day", w.TimeOfDay, "now", local)
		fired := w
		return &fired, nil
	}

	return nil, nil
}

// MarkFired records that the window completed its cycle today. Call only on
// a successful completion (including no-candidate and no-quota outcomes).
func (g *Gate) MarkFired(ctx context.Context, w domain.FiringWindow, now time.Time) error {
	today := domain.DayKey(now, g.loc)
	if err := g.store.MarkFired(ctx, w.TimeOfDay, today); err != nil {
		return fmt.Errorf("mark fired %s: %w", w.TimeOfDay, err)
	}
	return nil
}

// occurrence resolves a HH:MM entry to today's wall-clock moment in local's
// zone. A time that falls into a spring-forward gap does not exist on that
// day; it shifts to the first valid moment after the transition.
func occurrence(timeOfDay string, local time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("window time %q: %w", timeOfDay, err)
	}

	y, m, d := local.Date()
	due := time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, local.Location())

	// time.Date normalizes a gap time to a different clock reading, and it
	// can land before the transition. Shift forward by the wall-clock delta
	// so the window never opens earlier than configured.
	want := parsed.Hour()*60 + parsed.Minute()
	if got := due.Hour()*60 + due.Minute(); got < want {
		due = due.Add(time.Duration(want-got) * time.Minute)
	}

	return due, nil
}

func (g *Gate) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
