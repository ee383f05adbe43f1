package aggregate

import (
	"fmt"
	"time"

	"campuswal/internal/core"
)

// View is the list layout for one reporting window.
type View struct {
	Window  core.Window    `json:"view"`
	Total   core.Money     `json:"total"`
	Count   int            `json:"count"`
	Items   []TimedExpense `json:"items,omitempty"`
	Buckets []Bucket       `json:"buckets,omitempty"`
}

// BuildView sorts expenses newest-first, keeps the ones inside window and
// groups them for display: a flat timed list for today, days for the week,
// weeks of the month for the month and months for the year. The input slice
// is not modified.
func BuildView(window core.Window, expenses []core.Expense, now time.Time) (View, error) {
	p, err := PredicateFor(window)
	if err != nil {
		return View{}, fmt.Errorf("build view: %w", err)
	}

	sorted := SortNewestFirst(append([]core.Expense(nil), expenses...))
	selected := Select(sorted, p, now)
	loc := now.Location()

	v := View{Window: window, Total: sum(selected), Count: len(selected)}
	switch window {
	case core.WindowToday:
		v.Items = Today(selected, loc)
	case core.WindowWeek:
		v.Buckets = ByDay(selected, loc)
	case core.WindowMonth:
		v.Buckets = ByWeekOfMonth(selected, loc)
	case core.WindowYear:
		v.Buckets = ByMonth(selected, loc)
	}
	return v, nil
}
