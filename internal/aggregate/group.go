package aggregate

import (
	"fmt"
	"sort"
	"time"

	"campuswal/internal/core"
)

// Display formats for bucket labels and the today list.
const (
	DayLabelLayout = "Mon 02 Jan"
	TimeLayout     = "15:04"
)

// Bucket is a labelled group of expenses. Leaf buckets carry Expenses,
// parent buckets carry nested Buckets.
type Bucket struct {
	Label    string         `json:"label"`
	Total    core.Money     `json:"total"`
	Expenses []core.Expense `json:"expenses,omitempty"`
	Buckets  []Bucket       `json:"buckets,omitempty"`
}

// TimedExpense is an expense annotated with its local time of day.
type TimedExpense struct {
	core.Expense
	Time string `json:"time"`
}

// SortNewestFirst orders expenses by date descending, ties by id descending.
// The input slice is sorted in place and returned.
func SortNewestFirst(expenses []core.Expense) []core.Expense {
	sort.SliceStable(expenses, func(i, j int) bool {
		a, b := expenses[i], expenses[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	return expenses
}

func sum(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// groupOrdered buckets expenses by key, keeping first-seen bucket order and
// input order inside each bucket.
func groupOrdered(expenses []core.Expense, key func(core.Expense) string) []Bucket {
	index := make(map[string]int)
	var out []Bucket
	for _, e := range expenses {
		k := key(e)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Bucket{Label: k})
		}
		out[i].Expenses = append(out[i].Expenses, e)
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out
}

// ByDay groups by calendar date in loc, e.g. "Mon 03 Jun".
func ByDay(expenses []core.Expense, loc *time.Location) []Bucket {
	return groupOrdered(expenses, func(e core.Expense) string {
		return e.Date.In(loc).Format(DayLabelLayout)
	})
}

// WeekOfMonth returns ceil(day/7) for t.
func WeekOfMonth(t time.Time) int {
	return (t.Day() + 6) / 7
}

// ByWeekOfMonth groups into "Week N" buckets in ascending N, each split
// by calendar date.
func ByWeekOfMonth(expenses []core.Expense, loc *time.Location) []Bucket {
	weeks := make(map[int][]core.Expense)
	for _, e := range expenses {
		n := WeekOfMonth(e.Date.In(loc))
		weeks[n] = append(weeks[n], e)
	}
	keys := make([]int, 0, len(weeks))
	for n := range weeks {
		keys = append(keys, n)
	}
	sort.Ints(keys)

	out := make([]Bucket, 0, len(keys))
	for _, n := range keys {
		list := weeks[n]
		out = append(out, Bucket{
			Label:   fmt.Sprintf("Week %d", n),
			Total:   sum(list),
			Buckets: ByDay(list, loc),
		})
	}
	return out
}

// ByMonth groups by full month name in calendar order, each split by
// calendar date.
func ByMonth(expenses []core.Expense, loc *time.Location) []Bucket {
	months := make(map[time.Month][]core.Expense)
	for _, e := range expenses {
		m := e.Date.In(loc).Month()
		months[m] = append(months[m], e)
	}

	var out []Bucket
	for m := time.January; m <= time.December; m++ {
		list, ok := months[m]
		if !ok {
			continue
		}
		out = append(out, Bucket{
			Label:   m.String(),
			Total:   sum(list),
			Buckets: ByDay(list, loc),
		})
	}
	return out
}

// Today returns a flat list annotated with time of day in loc.
func Today(expenses []core.Expense, loc *time.Location) []TimedExpense {
	out := make([]TimedExpense, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, TimedExpense{Expense: e, Time: e.Date.In(loc).Format(TimeLayout)})
	}
	return out
}
