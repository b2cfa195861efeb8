package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/category"
	"github.com/joshsymonds/inboxpilot/internal/gmail"
)

func testEngine(t *testing.T, now time.Time) (*Engine, *analytics.Store) {
	t.Helper()
	store, err := analytics.Open(":memory:")
	be.Err(t, err, nil)
	t.Cleanup(func() { store.Close() })
	store.Clock = func() time.Time { return now }
	eng := NewEngine(store)
	eng.Clock = func() time.Time { return now }
	return eng, store
}

func record(t *testing.T, store *analytics.Store, id string, cat category.Category, important bool) {
	t.Helper()
	m := gmail.Message{ID: gmail.MessageID(id), Sender: "sender@x.com", Subject: "s"}
	be.Err(t, store.Record(context.Background(), m, cat, important), nil)
}

func TestSummary(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	eng, store := testEngine(t, now)

	record(t, store, "m1", category.InterviewRequest, true)
	record(t, store, "m2", category.JobAlert, false)
	record(t, store, "m3", category.JobAlert, false)
	record(t, store, "m4", category.Newsletter, false)

	rep, err := eng.Summary(context.Background(), 10)
	be.Err(t, err, nil)
	be.Equal(t, rep.WindowDays, 10)
	be.Equal(t, rep.Total, 4)
	be.Equal(t, rep.AveragePerDay, 0.4)
	be.Equal(t, rep.MostCommon, category.JobAlert)
	be.Equal(t, rep.MostCommonCount, 2)
	be.Equal(t, rep.Important, 1)
	be.Equal(t, rep.ImportantPercent, 25.0)
	be.Equal(t, rep.AllTimeTotal, 4)
	be.Equal(t, len(rep.DailyVolume), 11) // zero-filled, one per day inclusive
	be.Equal(t, len(rep.TopSenders), 1)
	be.Equal(t, rep.TopSenders[0].Count, 4)
}

func TestSummaryEmptyStore(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	eng, _ := testEngine(t, now)

	rep, err := eng.Summary(context.Background(), 30)
	be.Err(t, err, nil)
	be.Equal(t, rep.Total, 0)
	be.Equal(t, rep.ImportantPercent, 0.0)
	be.Equal(t, rep.MostCommon, category.Uncategorized)
	be.Equal(t, rep.Trend.Direction, "stable")
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   string
	}{
		{name: "increasing", counts: []int{0, 0, 1, 5, 6}, want: "increasing"},
		{name: "decreasing", counts: []int{6, 5, 1, 0, 0}, want: "decreasing"},
		{name: "flat", counts: []int{2, 2, 2, 2}, want: "stable"},
		{name: "single-point", counts: []int{3}, want: "insufficient data"},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			daily := make([]analytics.DayCount, len(tc.counts))
			for i, n := range tc.counts {
				daily[i] = analytics.DayCount{Day: "d", Count: n}
			}
			got := computeTrend(daily)
			be.Equal(t, got.Direction, tc.want)
		})
	}
}

func TestFillMissingDays(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	rows := []analytics.DayCount{{Day: "2026-08-30", Count: 3}}

	out := fillMissingDays(rows, now, 3)
	be.Equal(t, len(out), 4)
	be.Equal(t, out[0].Day, "2026-08-28")
	be.Equal(t, out[0].Count, 0)
	be.Equal(t, out[2].Day, "2026-08-30")
	be.Equal(t, out[2].Count, 3)
	be.Equal(t, out[3].Day, "2026-08-31")
}

func TestFormatTextIncludesHeadlines(t *testing.T) {
	rep := Report{
		WindowDays:    7,
		Total:         12,
		AveragePerDay: 1.7,
		Important:     3,
		MostCommon:    category.JobAlert,
		Trend:         Trend{Direction: "stable"},
		TopSenders:    []analytics.SenderStat{{Sender: "hr@acme.com", Count: 4}},
	}
	text := FormatText(rep)
	for _, want := range []string{"last 7 days", "Total: 12", "job_alert", "hr@acme.com"} {
		be.True(t, strings.Contains(text, want))
	}
}
