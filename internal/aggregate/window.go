// Package aggregate computes window totals and date-bucketed groupings over
// expense lists. Nothing here is persisted; every result is derived on read.
//
// Each reporting window has its own predicate, registered in a lookup table
// keyed by core.Window.
package aggregate

import (
	"fmt"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/search"
)

// Predicate decides whether an expense belongs to a window relative to now.
// Calendar comparisons use now's location.
type Predicate interface {
	Contains(e core.Expense, now time.Time) bool
}

// TodayPredicate matches expenses on now's calendar date.
type TodayPredicate struct{}

func (TodayPredicate) Contains(e core.Expense, now time.Time) bool {
	d := e.Date.In(now.Location())
	y1, m1, d1 := d.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// WeekPredicate matches the rolling seven days ending at now, inclusive of
// the lower edge.
type WeekPredicate struct{}

func (WeekPredicate) Contains(e core.Expense, now time.Time) bool {
	return e.Date.UnixMilli() >= now.Add(-search.WeekSpan).UnixMilli()
}

// MonthPredicate matches now's calendar month and year.
type MonthPredicate struct{}

func (MonthPredicate) Contains(e core.Expense, now time.Time) bool {
	d := e.Date.In(now.Location())
	return d.Year() == now.Year() && d.Month() == now.Month()
}

// YearPredicate matches now's calendar year.
type YearPredicate struct{}

func (YearPredicate) Contains(e core.Expense, now time.Time) bool {
	return e.Date.In(now.Location()).Year() == now.Year()
}

var predicates = map[core.Window]Predicate{
	core.WindowToday: TodayPredicate{},
	core.WindowWeek:  WeekPredicate{},
	core.WindowMonth: MonthPredicate{},
	core.WindowYear:  YearPredicate{},
}

// PredicateFor returns the predicate registered for w.
func PredicateFor(w core.Window) (Predicate, error) {
	p, ok := predicates[w]
	if !ok {
		return nil, fmt.Errorf("no window predicate for %q", w)
	}
	return p, nil
}

// Select returns the expenses matching p, keeping input order.
func Select(expenses []core.Expense, p Predicate, now time.Time) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if p.Contains(e, now) {
			out = append(out, e)
		}
	}
	return out
}

// Total sums the amounts of the expenses matching p.
func Total(expenses []core.Expense, p Predicate, now time.Time) core.Money {
	var sum core.Money
	for _, e := range expenses {
		if p.Contains(e, now) {
			sum = sum.Add(e.Amount)
		}
	}
	return sum
}

// Summary holds the four window cards.
type Summary struct {
	Today    core.Money `json:"today"`
	Week     core.Money `json:"week"`
	Month    core.Money `json:"month"`
	Year     core.Money `json:"year"`
	Filtered bool       `json:"filtered"`
}

// Summarize computes the window totals over expenses. When filtered is not
// nil a search is active and every card shows the filtered total instead.
func Summarize(expenses []core.Expense, now time.Time, filtered *core.ExpenseResult) Summary {
	if filtered != nil {
		t := filtered.Total
		return Summary{Today: t, Week: t, Month: t, Year: t, Filtered: true}
	}
	return Summary{
		Today: Total(expenses, TodayPredicate{}, now),
		Week:  Total(expenses, WeekPredicate{}, now),
		Month: Total(expenses, MonthPredicate{}, now),
		Year:  Total(expenses, YearPredicate{}, now),
	}
}
