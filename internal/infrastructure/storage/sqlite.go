package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsPoster/internal/domain"
	"NewsPoster/internal/ports"
)

// Store persists publication records, daily quota counters, and firing
// windows in a single SQLite database. It is the sole dedup authority and
// must be opened before the first cycle so restarts see prior state.
type Store struct {
	db       *sql.DB
	loc      *time.Location
	maxDaily int
	logger   *slog.Logger
}

var _ ports.DedupStore = (*Store)(nil)
var _ ports.QuotaTracker = (*Store)(nil)
var _ ports.WindowStore = (*Store)(nil)
var _ ports.Recorder = (*Store)(nil)

// Open creates or opens the database at path and migrates the schema.
// ":memory:" is supported for tests.
func Open(path string, loc *time.Location, maxDailyPosts int, logger *slog.Logger) (*Store, error) {
	// busy_timeout applies per connection, so it rides in the DSN where the
	// driver replays it for every pooled connection.
	connStr := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, loc: loc, maxDaily: maxDailyPosts, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS publications (
		url TEXT PRIMARY KEY,
		posted_at DATETIME NOT NULL,
		shape TEXT NOT NULL,
		post_ids TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS daily_quota (
		date TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS firing_windows (
		time_of_day TEXT PRIMARY KEY,
		last_fired_date TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasPosted reports whether a publication record exists for the URL.
func (s *Store) HasPosted(ctx context.Context, url string) (bool, error) {
	query, args, err := sq.Select("1").From("publications").Where(sq.Eq{"url": url}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query publication: %w", err)
	}
	return true, nil
}

// Record stores a publication record, failing with domain.ErrDuplicateURL
// when the URL is already recorded. The write is atomic.
func (s *Store) Record(ctx context.Context, rec domain.PublicationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertPublication(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RemainingToday returns max_daily_posts minus the count for now's calendar
// day in the configured timezone. Never negative.
func (s *Store) RemainingToday(ctx context.Context, now time.Time) (int, error) {
	day := domain.DayKey(now, s.loc)

	query, args, err := sq.Select("count").From("daily_quota").Where(sq.Eq{"date": day}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err == sql.ErrNoRows {
		count = 0
	} else if err != nil {
		return 0, fmt.Errorf("query quota: %w", err)
	}

	remaining := s.maxDaily - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Increment bumps today's counter, failing with domain.ErrQuotaExceeded when
// the cap is reached. The conditional update makes concurrent increments
// safe: two increments never both succeed for the last slot.
func (s *Store) Increment(ctx context.Context, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.incrementQuota(ctx, tx, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CommitPublication writes the publication record and increments the quota
// in one transaction. Either both apply or neither.
func (s *Store) CommitPublication(ctx context.Context, rec domain.PublicationRecord, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertPublication(ctx, tx, rec); err != nil {
		return err
	}
	if err := s.incrementQuota(ctx, tx, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.debug("publication committed", "url", rec.URL, "shape", rec.Shape, "posts", len(rec.PostIDs))
	return nil
}

// EnsureWindows creates rows for each configured post time and removes rows
// for times no longer configured.
func (s *Store) EnsureWindows(ctx context.Context, times []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sq.Delete("firing_windows").Where(sq.NotEq{"time_of_day": times}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune windows: %w", err)
	}

	for _, t := range times {
		query, args, err := sq.Insert("firing_windows").
			Columns("time_of_day").
			Values(t).
			Suffix("ON CONFLICT(time_of_day) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert window %s: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Windows returns all persisted firing windows.
func (s *Store) Windows(ctx context.Context) ([]domain.FiringWindow, error) {
	query, args, err := sq.Select("time_of_day", "last_fired_date").From("firing_windows").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query windows: %w", err)
	}
	defer rows.Close()

	var windows []domain.FiringWindow
	for rows.Next() {
		var w domain.FiringWindow
		var fired sql.NullString
		if err := rows.Scan(&w.TimeOfDay, &fired); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		if fired.Valid {
			w.LastFiredDate = fired.String
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return windows, nil
}

// MarkFired records the date a window last fired.
func (s *Store) MarkFired(ctx context.Context, timeOfDay, date string) error {
	query, args, err := sq.Update("firing_windows").
		Set("last_fired_date", date).
		Where(sq.Eq{"time_of_day": timeOfDay}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update window %s: %w", timeOfDay, err)
	}
	return nil
}

func insertPublication(ctx context.Context, tx *sql.Tx, rec domain.PublicationRecord) error {
	ids, err := json.Marshal(rec.PostIDs)
	if err != nil {
		return fmt.Errorf("marshal post ids: %w", err)
	}

	query, args, err := sq.Insert("publications").
		Columns("url", "posted_at", "shape", "post_ids").
		Values(rec.URL, rec.PostedAt.UTC(), string(rec.Shape), string(ids)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("record %s: %w", rec.URL, domain.ErrDuplicateURL)
		}
		return fmt.Errorf("insert publication: %w", err)
	}
	return nil
}

func (s *Store) incrementQuota(ctx context.Context, tx *sql.Tx, now time.Time) error {
	day := domain.DayKey(now, s.loc)

	query, args, err := sq.Insert("daily_quota").
		Columns("date", "count").
		Values(day, 0).
		Suffix("ON CONFLICT(date) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed quota row: %w", err)
	}

	query, args, err = sq.Update("daily_quota").
		Set("count", sq.Expr("count + 1")).
		Where(sq.Eq{"date": day}).
		Where(sq.Lt{"count": s.maxDaily}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("increment quota: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("day %s: %w", day, domain.ErrQuotaExceeded)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
