// Package analytics persists classification outcomes to a local SQLite file
// and answers the aggregate queries the report engine needs.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
)

const schema = `
CREATE TABLE IF NOT EXISTS emails (
	id            TEXT PRIMARY KEY,
	subject       TEXT NOT NULL DEFAULT '',
	sender        TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL,
	category_label TEXT NOT NULL,
	is_important  BOOLEAN NOT NULL DEFAULT 0,
	snippet       TEXT NOT NULL DEFAULT '',
	thread_id     TEXT NOT NULL DEFAULT '',
	recorded_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_emails_recorded_at ON emails(recorded_at);
CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category);
CREATE INDEX IF NOT EXISTS idx_emails_important ON emails(is_important);
`

// Entry is one recorded classification.
type Entry struct {
	ID         string            `db:"id"`
	Subject    string            `db:"subject"`
	Sender     string            `db:"sender"`
	Category   category.Category `db:"category"`
	Label      string            `db:"category_label"`
	Important  bool              `db:"is_important"`
	Snippet    string            `db:"snippet"`
	ThreadID   string            `db:"thread_id"`
	RecordedAt time.Time         `db:"recorded_at"`
}

// SenderStat ranks a sender by recorded volume.
type SenderStat struct {
	Sender string `db:"sender" json:"sender"`
	Count  int    `db:"n" json:"count"`
}

// DayCount is recorded volume for one calendar day.
type DayCount struct {
	Day   string `db:"day" json:"day"` // YYYY-MM-DD, UTC
	Count int    `db:"n" json:"count"`
}

// Store wraps the SQLite analytics database.
type Store struct {
	db    *sqlx.DB
	Clock func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path+"?_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	// a single writer keeps the driver's lock handling simple
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply analytics schema: %w", err)
	}
	return &Store{db: db, Clock: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record upserts one classified message. Re-running a triage pass over the
// same message overwrites the earlier row rather than double counting.
func (s *Store) Record(ctx context.Context, msg gmail.Message, cat category.Category, important bool) error {
	entry := Entry{
		ID:         string(msg.ID),
		Subject:    msg.Subject,
		Sender:     msg.Sender,
		Category:   cat,
		Label:      category.Label(cat),
		Important:  important,
		Snippet:    msg.Snippet,
		ThreadID:   string(msg.Thread),
		RecordedAt: s.Clock().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO emails
		(id, subject, sender, category, category_label, is_important, snippet, thread_id, recorded_at)
		VALUES (:id, :subject, :sender, :category, :category_label, :is_important, :snippet, :thread_id, :recorded_at)`,
		entry)
	if err != nil {
		return fmt.Errorf("record email: %w", err)
	}
	return nil
}

// Find returns the recorded entry for one message ID.
func (s *Store) Find(ctx context.Context, id string) (Entry, error) {
	var e Entry
	err := s.db.GetContext(ctx, &e, `SELECT * FROM emails WHERE id = ?`, id)
	if err != nil {
		return Entry{}, fmt.Errorf("find email %s: %w", id, err)
	}
	return e, nil
}

// CategoryCounts returns per-category volume over the trailing window.
func (s *Store) CategoryCounts(ctx context.Context, days int) (map[category.Category]int, error) {
	rows := []struct {
		Category category.Category `db:"category"`
		N        int               `db:"n"`
	}{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT category, COUNT(*) AS n FROM emails
		WHERE recorded_at >= ? GROUP BY category`, s.cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	out := make(map[category.Category]int, len(rows))
	for _, r := range rows {
		out[r.Category] = r.N
	}
	return out, nil
}

// DailyVolume returns per-day counts over the trailing window, oldest first.
// Days with no mail are absent; the report engine zero-fills.
func (s *Store) DailyVolume(ctx context.Context, days int) ([]DayCount, error) {
	var out []DayCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT strftime('%Y-%m-%d', recorded_at) AS day, COUNT(*) AS n
		FROM emails WHERE recorded_at >= ?
		GROUP BY day ORDER BY day`, s.cutoff(days))
	if err != nil {
		return nil, fmt.Errorf("daily volume: %w", err)
	}
	return out, nil
}

// TopSenders ranks senders by volume over the trailing window.
func (s *Store) TopSenders(ctx context.Context, days, limit int) ([]SenderStat, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []SenderStat
	err := s.db.SelectContext(ctx, &out, `
		SELECT sender, COUNT(*) AS n FROM emails
		WHERE recorded_at >= ?
		GROUP BY sender ORDER BY n DESC, sender LIMIT ?`, s.cutoff(days), limit)
	if err != nil {
		return nil, fmt.Errorf("top senders: %w", err)
	}
	return out, nil
}

// ImportantCount returns how many recorded messages in the window were in
// the notify-trigger set.
func (s *Store) ImportantCount(ctx context.Context, days int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM emails WHERE recorded_at >= ? AND is_important = 1`,
		s.cutoff(days))
	if err != nil {
		return 0, fmt.Errorf("important count: %w", err)
	}
	return n, nil
}

// WindowCount returns the total recorded messages in the window.
func (s *Store) WindowCount(ctx context.Context, days int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM emails WHERE recorded_at >= ?`, s.cutoff(days))
	if err != nil {
		return 0, fmt.Errorf("window count: %w", err)
	}
	return n, nil
}

// TotalCount returns the all-time recorded total.
func (s *Store) TotalCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM emails`); err != nil {
		return 0, fmt.Errorf("total count: %w", err)
	}
	return n, nil
}

func (s *Store) cutoff(days int) time.Time {
	if days <= 0 {
		days = 30
	}
	return s.Clock().UTC().AddDate(0, 0, -days)
}
