package search

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/core"
)

func exp(item string, at time.Time) core.Expense {
	return core.Expense{Item: item, Amount: core.Money{Cents: 100}, Date: at, Timestamp: at.UnixMilli()}
}

func TestMatchItem(t *testing.T) {
	cases := []struct {
		item, query string
		want        bool
	}{
		{"Food", "", true},
		{"Food", "foo", true},
		{"Food", "FOO", true},
		{"Books", "foo", false},
		{"Coffee beans", "bean", true},
		{"", "x", false},
	}
	for _, tc := range cases {
		if got := MatchItem(tc.item, tc.query); got != tc.want {
			t.Fatalf("MatchItem(%q, %q) = %v, want %v", tc.item, tc.query, got, tc.want)
		}
	}
}

func TestFilterApplySearch(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	list := []core.Expense{exp("Food", now), exp("Books", now.Add(-time.Hour))}

	got := Filter{Query: "foo"}.Apply(list, now)
	if len(got) != 1 || got[0].Item != "Food" {
		t.Fatalf("expected only Food, got %+v", got)
	}
	if got := (Filter{}).Apply(list, now); len(got) != 2 {
		t.Fatalf("empty filter should keep everything, got %d", len(got))
	}
}

func TestFilterWeekBoundary(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	f := Filter{Window: core.WindowWeek}

	edge := now.Add(-WeekSpan)
	if !f.Match(exp("Food", edge), now) {
		t.Fatalf("expense exactly 7 days old should be inside the week")
	}
	if f.Match(exp("Food", edge.Add(-time.Millisecond)), now) {
		t.Fatalf("expense older than 7 days should be outside the week")
	}
}

func TestFilterTodayUsesCalendarDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 6, 3, 0, 30, 0, 0, loc)
	f := Filter{Window: core.WindowToday}

	if !f.Match(exp("Food", time.Date(2025, 6, 3, 0, 0, 0, 0, loc)), now) {
		t.Fatalf("midnight should belong to today")
	}
	if f.Match(exp("Food", time.Date(2025, 6, 2, 23, 59, 0, 0, loc)), now) {
		t.Fatalf("yesterday late evening is not today")
	}
	if f.Match(exp("Food", time.Date(2025, 6, 4, 0, 0, 0, 0, loc)), now) {
		t.Fatalf("tomorrow is not today")
	}
}

func TestFilterRollingWindows(t *testing.T) {
	now := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		window core.Window
		age    time.Duration
		want   bool
	}{
		{core.WindowMonth, 29 * day, true},
		{core.WindowMonth, 31 * day, false},
		{core.WindowYear, 364 * day, true},
		{core.WindowYear, 366 * day, false},
		{core.WindowAll, 5000 * day, true},
	}
	for _, tc := range cases {
		got := Filter{Window: tc.window}.Match(exp("Food", now.Add(-tc.age)), now)
		if got != tc.want {
			t.Fatalf("%s age %v: got %v, want %v", tc.window, tc.age, got, tc.want)
		}
	}
}

func TestDebouncerRunsLastCallOnly(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, DefaultDebounce)

	fired := make(chan string, 3)
	for _, q := range []string{"f", "fo", "foo"} {
		q := q
		d.Trigger(func() { fired <- q })
		clock.Advance(100 * time.Millisecond)
	}
	clock.Advance(DefaultDebounce)

	select {
	case q := <-fired:
		if q != "foo" {
			t.Fatalf("expected last query, got %q", q)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced call never ran")
	}
	select {
	case q := <-fired:
		t.Fatalf("unexpected extra call %q", q)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, 0)

	fired := make(chan struct{}, 1)
	d.Trigger(func() { fired <- struct{}{} })
	d.Stop()
	clock.Advance(time.Second)

	select {
	case <-fired:
		t.Fatal("stopped call ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerStopWhileTimerFiring(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := NewDebouncer(clock, 0)

	fired := make(chan struct{}, 1)
	d.Trigger(func() { fired <- struct{}{} })

	// Let the timer fire while the lock is held, as it would during a
	// concurrent Stop.
	d.mu.Lock()
	clock.Advance(DefaultDebounce)
	time.Sleep(20 * time.Millisecond)
	d.stopLocked()
	d.mu.Unlock()

	select {
	case <-fired:
		t.Fatal("call ran after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
