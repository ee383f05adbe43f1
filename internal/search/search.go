// Package search implements the expense filter shared by every backend:
// a case-insensitive item match combined with a time window bound.
package search

import (
	"strings"
	"time"

	"campuswal/internal/core"
)

const day = 24 * time.Hour

// Rolling window lengths measured back from now.
const (
	WeekSpan  = 7 * day
	MonthSpan = 30 * day
	YearSpan  = 365 * day
)

// MatchItem reports whether item contains query, ignoring case. An empty
// query matches every item.
func MatchItem(item, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item), strings.ToLower(query))
}

// Filter selects expenses by item text and time window.
type Filter struct {
	Query  string      `json:"search"`
	Window core.Window `json:"filter"`
}

// Range is a half-open interval of epoch milliseconds. A zero bound is open.
type Range struct {
	From int64
	To   int64
}

func (r Range) Contains(ms int64) bool {
	if r.From != 0 && ms < r.From {
		return false
	}
	if r.To != 0 && ms >= r.To {
		return false
	}
	return true
}

// Bounds returns the timestamp range for the filter's window. The calendar
// day for WindowToday is taken in now's location.
func (f Filter) Bounds(now time.Time) Range {
	switch f.Window {
	case core.WindowToday:
		start := StartOfDay(now)
		return Range{From: start.UnixMilli(), To: start.AddDate(0, 0, 1).UnixMilli()}
	case core.WindowWeek:
		return Range{From: now.Add(-WeekSpan).UnixMilli()}
	case core.WindowMonth:
		return Range{From: now.Add(-MonthSpan).UnixMilli()}
	case core.WindowYear:
		return Range{From: now.Add(-YearSpan).UnixMilli()}
	default:
		return Range{}
	}
}

// Match reports whether a single expense passes the filter.
func (f Filter) Match(e core.Expense, now time.Time) bool {
	return MatchItem(e.Item, f.Query) && f.Bounds(now).Contains(e.Timestamp)
}

// Apply returns the expenses that pass the filter, keeping input order.
func (f Filter) Apply(expenses []core.Expense, now time.Time) []core.Expense {
	bounds := f.Bounds(now)
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if MatchItem(e.Item, f.Query) && bounds.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	return out
}

// IsActive reports whether the filter narrows results by text.
func (f Filter) IsActive() bool {
	return f.Query != ""
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
