// Package report computes summary statistics and volume trends from the
// analytics store.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/joshsymonds/inboxpilot/internal/analytics"
	"github.com/joshsymonds/inboxpilot/internal/category"
)

// Report summarizes recorded triage activity over a trailing window.
type Report struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	WindowDays        int                       `json:"window_days"`
	Total             int                       `json:"total"`
	AveragePerDay     float64                   `json:"average_per_day"`
	CategoryBreakdown map[category.Category]int `json:"category_breakdown"`
	MostCommon        category.Category         `json:"most_common_category"`
	MostCommonCount   int                       `json:"most_common_count"`
	Important         int                       `json:"important_emails"`
	ImportantPercent  float64                   `json:"important_percentage"`
	TopSenders        []analytics.SenderStat    `json:"top_senders"`
	DailyVolume       []analytics.DayCount      `json:"daily_volume"`
	Trend             Trend                     `json:"trend"`
	AllTimeTotal      int                       `json:"all_time_total"`
}

// Trend compares the first and second half of the window.
type Trend struct {
	Direction string  `json:"direction"` // increasing, decreasing, stable
	ChangePct float64 `json:"change_pct"`
}

// Engine answers report queries against the analytics store.
type Engine struct {
	Store *analytics.Store
	Clock func() time.Time
}

func NewEngine(store *analytics.Store) *Engine {
	return &Engine{Store: store, Clock: time.Now}
}

// Summary builds a full report for the trailing window.
func (e *Engine) Summary(ctx context.Context, days int) (Report, error) {
	if days <= 0 {
		days = 30
	}

	total, err := e.Store.WindowCount(ctx, days)
	if err != nil {
		return Report{}, err
	}
	counts, err := e.Store.CategoryCounts(ctx, days)
	if err != nil {
		return Report{}, err
	}
	important, err := e.Store.ImportantCount(ctx, days)
	if err != nil {
		return Report{}, err
	}
	senders, err := e.Store.TopSenders(ctx, days, 5)
	if err != nil {
		return Report{}, err
	}
	daily, err := e.Store.DailyVolume(ctx, days)
	if err != nil {
		return Report{}, err
	}
	allTime, err := e.Store.TotalCount(ctx)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		GeneratedAt:       e.Clock().UTC(),
		WindowDays:        days,
		Total:             total,
		AveragePerDay:     round1(float64(total) / float64(days)),
		CategoryBreakdown: counts,
		Important:         important,
		TopSenders:        senders,
		DailyVolume:       fillMissingDays(daily, e.Clock().UTC(), days),
		AllTimeTotal:      allTime,
	}
	if total > 0 {
		rep.ImportantPercent = round1(100 * float64(important) / float64(total))
	}
	rep.MostCommon, rep.MostCommonCount = mostCommon(counts)
	rep.Trend = computeTrend(rep.DailyVolume)
	return rep, nil
}

func mostCommon(counts map[category.Category]int) (category.Category, int) {
	cats := make([]category.Category, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) == 0 {
		return category.Uncategorized, 0
	}
	return cats[0], counts[cats[0]]
}

// fillMissingDays expands store rows to one entry per calendar day so the
// trend comparison is not skewed by quiet days.
func fillMissingDays(rows []analytics.DayCount, now time.Time, days int) []analytics.DayCount {
	byDay := make(map[string]int, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r.Count
	}
	start := now.AddDate(0, 0, -days)
	out := make([]analytics.DayCount, 0, days+1)
	for i := 0; i <= days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, analytics.DayCount{Day: day, Count: byDay[day]})
	}
	return out
}

func computeTrend(daily []analytics.DayCount) Trend {
	if len(daily) < 2 {
		return Trend{Direction: "insufficient data"}
	}
	mid := len(daily) / 2
	firstAvg := avg(daily[:mid])
	secondAvg := avg(daily[mid:])

	var pct float64
	if firstAvg > 0 {
		pct = 100 * (secondAvg - firstAvg) / firstAvg
	}
	dir := "stable"
	switch {
	case pct > 5:
		dir = "increasing"
	case pct < -5:
		dir = "decreasing"
	}
	return Trend{Direction: dir, ChangePct: round1(pct)}
}

func avg(rows []analytics.DayCount) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rows {
		sum += r.Count
	}
	return float64(sum) / float64(len(rows))
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// FormatText renders a report for chat and terminal output.
func FormatText(rep Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Triage report, last %d days\n", rep.WindowDays)
	fmt.Fprintf(&b, "Total: %d (%.1f/day, %d all time)\n", rep.Total, rep.AveragePerDay, rep.AllTimeTotal)
	fmt.Fprintf(&b, "Important: %d (%.1f%%)\n", rep.Important, rep.ImportantPercent)
	fmt.Fprintf(&b, "Most common: %s (%d)\n", rep.MostCommon, rep.MostCommonCount)
	fmt.Fprintf(&b, "Trend: %s (%+.1f%%)\n", rep.Trend.Direction, rep.Trend.ChangePct)
	if len(rep.TopSenders) > 0 {
		b.WriteString("Top senders:\n")
		for _, s := range rep.TopSenders {
			fmt.Fprintf(&b, "  %d  %s\n", s.Count, s.Sender)
		}
	}
	return b.String()
}
