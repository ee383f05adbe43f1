package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/backend"
	"campuswal/internal/core"
	"campuswal/internal/local"
	"campuswal/internal/log"
	"campuswal/internal/notify"
	"campuswal/internal/search"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T) (*backend.Gateway, clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	gw := backend.NewGateway(backend.StaticFactory{Backend: local.NewMemory()},
		backend.Config{Type: backend.MemoryBackend},
		backend.WithClock(clock), backend.WithLocation(time.UTC), backend.WithLogger(log.Discard()))
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init gateway: %v", err)
	}
	t.Cleanup(func() { gw.Teardown() })
	return gw, clock
}

func TestExpenseServiceAdd(t *testing.T) {
	tests := []struct {
		name      string
		in        ExpenseInput
		wantItem  string
		wantCents int64
		wantField string
	}{
		{name: "category", in: ExpenseInput{Category: "Food", Amount: "12.50"}, wantItem: "Food", wantCents: 1250},
		{name: "comma decimal", in: ExpenseInput{Category: "Books", Amount: "3,99"}, wantItem: "Books", wantCents: 399},
		{name: "other uses custom", in: ExpenseInput{Category: "Other", Custom: "  Coffee ", Amount: "2"}, wantItem: "Coffee", wantCents: 200},
		{name: "other without name", in: ExpenseInput{Category: "Other", Custom: "  ", Amount: "2"}, wantField: "item"},
		{name: "unknown category", in: ExpenseInput{Category: "Rent", Amount: "2"}, wantField: "category"},
		{name: "bad amount", in: ExpenseInput{Category: "Food", Amount: "abc"}, wantField: "amount"},
		{name: "zero amount", in: ExpenseInput{Category: "Food", Amount: "0"}, wantField: "amount"},
		{name: "empty amount", in: ExpenseInput{Category: "Food"}, wantField: "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newTestGateway(t)
			svc := NewExpenseService(gw, nil)
			ctx := context.Background()

			res, err := svc.Add(ctx, tt.in)
			if tt.wantField != "" {
				var verr *core.ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.wantField {
					t.Fatalf("expected validation error on %q, got %v", tt.wantField, err)
				}
				list, _ := svc.List(ctx, search.Filter{})
				if list.Count != 0 {
					t.Fatalf("invalid input must not be stored, got %d expenses", list.Count)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Success || res.ID == 0 {
				t.Fatalf("unexpected result %+v", res)
			}
			list, err := svc.List(ctx, search.Filter{})
			if err != nil {
				t.Fatal(err)
			}
			if list.Count != 1 || list.Expenses[0].Item != tt.wantItem || list.Expenses[0].Amount.Cents != tt.wantCents {
				t.Fatalf("unexpected stored expenses %+v", list.Expenses)
			}
			if !list.Expenses[0].Date.Equal(testNow) {
				t.Errorf("expense should be stamped with the clock, got %v", list.Expenses[0].Date)
			}
		})
	}
}

func TestExpenseServiceSummary(t *testing.T) {
	gw, clock := newTestGateway(t)
	svc := NewExpenseService(gw, nil)
	ctx := context.Background()

	// 40 days ago: outside month, inside year.
	old := testNow.Add(-40 * 24 * time.Hour)
	if _, err := gw.SaveExpense(ctx, core.Expense{Item: "Books", Amount: core.Money{Cents: 5000}, Date: old}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Add(ctx, ExpenseInput{Category: "Food", Amount: "10"}); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Minute)
	if _, err := svc.Add(ctx, ExpenseInput{Category: "Other", Custom: "foo bar", Amount: "2.50"}); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Summary(ctx, search.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Filtered {
		t.Error("summary without search must not be marked filtered")
	}
	if sum.Today.Cents != 1250 || sum.Week.Cents != 1250 || sum.Month.Cents != 1250 || sum.Year.Cents != 6250 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	sum, err = svc.Summary(ctx, search.Filter{Query: "foo"})
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Filtered {
		t.Error("summary with search must be marked filtered")
	}
	// "foo" matches both "Food" and "foo bar" regardless of case.
	for name, m := range map[string]core.Money{"today": sum.Today, "week": sum.Week, "month": sum.Month, "year": sum.Year} {
		if m.Cents != 1250 {
			t.Errorf("%s card = %d, want the search total 1250", name, m.Cents)
		}
	}

	sum, err = svc.Summary(ctx, search.Filter{Query: "BAR"})
	if err != nil {
		t.Fatal(err)
	}
	for name, m := range map[string]core.Money{"today": sum.Today, "week": sum.Week, "month": sum.Month, "year": sum.Year} {
		if m.Cents != 250 {
			t.Errorf("%s card = %d, want the search total 250", name, m.Cents)
		}
	}
}

func TestExpenseServiceView(t *testing.T) {
	gw, _ := newTestGateway(t)
	svc := NewExpenseService(gw, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, ExpenseInput{Category: "Travel", Amount: "7"}); err != nil {
		t.Fatal(err)
	}
	v, err := svc.View(ctx, core.WindowToday, search.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Count != 1 || len(v.Items) != 1 || v.Items[0].Time != "12:00" {
		t.Fatalf("unexpected today view %+v", v)
	}

	if _, err := svc.View(ctx, core.WindowAll, search.Filter{}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for the all window, got %v", err)
	}
}

func TestTodoServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		in      TodoInput
		wantErr error
	}{
		{name: "empty title", in: TodoInput{Title: "  ", Date: "2025-06-16", Time: "09:00"}, wantErr: core.ErrEmptyTitle},
		{name: "missing date", in: TodoInput{Title: "Call", Time: "09:00"}, wantErr: core.ErrMissingDate},
		{name: "missing time", in: TodoInput{Title: "Call", Date: "2025-06-16"}, wantErr: core.ErrMissingTime},
		{name: "bad priority", in: TodoInput{Title: "Call", Date: "2025-06-16", Time: "09:00", Priority: "urgent"}, wantErr: core.ErrInvalidPriority},
		{name: "bad date", in: TodoInput{Title: "Call", Date: "16/06/2025", Time: "09:00"}, wantErr: core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, _ := newTestGateway(t)
			svc := NewTodoService(gw, 0, nil)
			_, err := svc.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTodoServiceLifecycle(t *testing.T) {
	gw, clock := newTestGateway(t)
	svc := NewTodoService(gw, 0, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, TodoInput{Title: " Pay rent ", Date: "2025-06-16", Time: "09:30"})
	if err != nil {
		t.Fatal(err)
	}
	todos, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(todos) != 1 {
		t.Fatalf("expected one todo, got %d", len(todos))
	}
	got := todos[0]
	want := time.Date(2025, 6, 16, 9, 30, 0, 0, time.UTC)
	if got.Title != "Pay rent" || !got.When.Equal(want) || got.Priority != core.PriorityLow || got.State() != core.TodoPending {
		t.Fatalf("unexpected todo %+v", got)
	}

	clock.Advance(time.Hour)
	if err := svc.MarkDone(ctx, res.ID); err != nil {
		t.Fatal(err)
	}
	todos, _ = svc.List(ctx)
	if !todos[0].Done || !todos[0].DoneAt.Equal(testNow.Add(time.Hour)) {
		t.Fatalf("expected completed todo stamped with now, got %+v", todos[0])
	}

	if err := svc.Reschedule(ctx, res.ID, "2025-06-20", "18:00"); err != nil {
		t.Fatal(err)
	}
	todos, _ = svc.List(ctx)
	got = todos[0]
	if got.Done || got.Notified || !got.DoneAt.IsZero() {
		t.Fatalf("reschedule should reset the todo to pending, got %+v", got)
	}
	if !got.When.Equal(time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected new when %v", got.When)
	}

	if err := svc.MarkDone(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTodoServiceMarkDoneKeepsFirstCompletion(t *testing.T) {
	gw, clock := newTestGateway(t)
	svc := NewTodoService(gw, 0, nil)
	ctx := context.Background()

	res, err := svc.Create(ctx, TodoInput{Title: "return books", Date: "2025-06-15", Time: "08:00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.MarkDone(ctx, res.ID); err != nil {
		t.Fatal(err)
	}
	clock.Advance(20 * 24 * time.Hour)
	if err := svc.MarkDone(ctx, res.ID); err != nil {
		t.Fatalf("completing twice should not fail, got %v", err)
	}

	todos, _ := svc.List(ctx)
	if !todos[0].DoneAt.Equal(testNow) {
		t.Fatalf("doneAt = %v, want the first completion %v", todos[0].DoneAt.Time, testNow)
	}

	clock.Advance(2 * 24 * time.Hour)
	if n, err := svc.Sweep(ctx); err != nil || n != 1 {
		t.Fatalf("retention should run from the first completion, swept %d %v", n, err)
	}
}

func TestTodoServiceSweep(t *testing.T) {
	gw, clock := newTestGateway(t)
	svc := NewTodoService(gw, 0, nil)
	ctx := context.Background()

	create := func(title string) core.ID {
		res, err := svc.Create(ctx, TodoInput{Title: title, Date: "2025-06-15", Time: "08:00"})
		if err != nil {
			t.Fatal(err)
		}
		return res.ID
	}
	oldID := create("old")
	if err := svc.MarkDone(ctx, oldID); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * 24 * time.Hour)
	recentID := create("recent")
	if err := svc.MarkDone(ctx, recentID); err != nil {
		t.Fatal(err)
	}
	openID := create("open")

	// old was completed 22 days ago, recent 20 days ago.
	clock.Advance(20 * 24 * time.Hour)

	n, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one swept todo, got %d", n)
	}
	todos, _ := svc.List(ctx)
	kept := map[core.ID]bool{}
	for _, td := range todos {
		kept[td.ID] = true
	}
	if kept[oldID] || !kept[recentID] || !kept[openID] {
		t.Fatalf("unexpected survivors %+v", todos)
	}

	if n, err := svc.Sweep(ctx); err != nil || n != 0 {
		t.Fatalf("second sweep should remove nothing, got %d %v", n, err)
	}
}

type recordingNotifier struct {
	got []notify.Reminder
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, r notify.Reminder) error {
	n.got = append(n.got, r)
	return n.err
}

func TestReminderProcessorFiresOnce(t *testing.T) {
	gw, clock := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{}
	proc := NewReminderProcessor(gw, rec, nil)
	ctx := context.Background()

	if _, err := todos.Create(ctx, TodoInput{Title: "due", Date: "2025-06-15", Time: "11:00", Priority: "high"}); err != nil {
		t.Fatal(err)
	}
	if _, err := todos.Create(ctx, TodoInput{Title: "later", Date: "2025-06-15", Time: "13:00"}); err != nil {
		t.Fatal(err)
	}

	n, err := proc.ProcessDueReminders(ctx, gw.Now())
	if err != nil || n != 1 {
		t.Fatalf("expected one reminder, got %d %v", n, err)
	}
	if len(rec.got) != 1 || rec.got[0].Title != "due" || rec.got[0].Priority != core.PriorityHigh {
		t.Fatalf("unexpected deliveries %+v", rec.got)
	}

	n, err = proc.ProcessDueReminders(ctx, gw.Now())
	if err != nil || n != 0 || len(rec.got) != 1 {
		t.Fatalf("second run must be a no-op, got %d %v %d", n, err, len(rec.got))
	}

	clock.Advance(time.Hour)
	if n, _ := proc.ProcessDueReminders(ctx, gw.Now()); n != 1 || rec.got[1].Title != "later" {
		t.Fatalf("later reminder should fire once its time passes, got %d %+v", n, rec.got)
	}
}

func TestReminderProcessorCompletedNeverFires(t *testing.T) {
	gw, _ := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{}
	ctx := context.Background()

	res, err := todos.Create(ctx, TodoInput{Title: "done already", Date: "2025-06-15", Time: "10:00"})
	if err != nil {
		t.Fatal(err)
	}
	if err := todos.MarkDone(ctx, res.ID); err != nil {
		t.Fatal(err)
	}
	if n, err := NewReminderProcessor(gw, rec, nil).ProcessDueReminders(ctx, gw.Now()); n != 0 || err != nil || len(rec.got) != 0 {
		t.Fatalf("completed todo must not fire, got %d %v", n, err)
	}
}

func TestReminderProcessorDeliveryFailureIsNotRetried(t *testing.T) {
	gw, _ := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{err: errors.New("channel down")}
	proc := NewReminderProcessor(gw, rec, nil)
	ctx := context.Background()

	if _, err := todos.Create(ctx, TodoInput{Title: "due", Date: "2025-06-15", Time: "11:00"}); err != nil {
		t.Fatal(err)
	}
	n, err := proc.ProcessDueReminders(ctx, gw.Now())
	if err != nil || n != 1 {
		t.Fatalf("delivery failure is logged only, got %d %v", n, err)
	}
	list, _ := todos.List(ctx)
	if !list[0].Notified {
		t.Fatal("todo should stay marked notified")
	}
	if n, _ := proc.ProcessDueReminders(ctx, gw.Now()); n != 0 || len(rec.got) != 1 {
		t.Fatalf("failed delivery must not be retried, got %d deliveries", len(rec.got))
	}
}

// failingUpdates cannot persist the notified flag.
type failingUpdates struct {
	*backend.Gateway
}

func (failingUpdates) MarkNotified(context.Context, core.ID, core.Millis) (bool, error) {
	return false, core.NewStorageError("mark notified", errors.New("disk full"))
}

func TestReminderProcessorPersistFailureSkipsDelivery(t *testing.T) {
	gw, _ := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{}
	ctx := context.Background()

	if _, err := todos.Create(ctx, TodoInput{Title: "due", Date: "2025-06-15", Time: "11:00"}); err != nil {
		t.Fatal(err)
	}
	n, err := NewReminderProcessor(failingUpdates{gw}, rec, nil).ProcessDueReminders(ctx, gw.Now())
	if !errors.Is(err, core.ErrStorage) || n != 0 {
		t.Fatalf("expected storage error and nothing fired, got %d %v", n, err)
	}
	if len(rec.got) != 0 {
		t.Fatal("reminder must not be delivered when it could not be marked")
	}
	list, _ := todos.List(ctx)
	if list[0].Notified {
		t.Fatal("todo should stay pending for the next check")
	}
}

// rescheduleAfterRead moves the todo to a new time right after the list is
// read, as an HTTP request racing the worker would.
type rescheduleAfterRead struct {
	*backend.Gateway
	todos *TodoService
	id    core.ID
	done  bool
}

func (r *rescheduleAfterRead) GetTodos(ctx context.Context) ([]core.Todo, error) {
	list, err := r.Gateway.GetTodos(ctx)
	if err != nil || r.done {
		return list, err
	}
	r.done = true
	return list, r.todos.Reschedule(ctx, r.id, "2025-06-16", "09:00")
}

func TestReminderProcessorSkipsTodoRescheduledAfterRead(t *testing.T) {
	gw, clock := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{}
	ctx := context.Background()

	res, err := todos.Create(ctx, TodoInput{Title: "call home", Date: "2025-06-15", Time: "11:00"})
	if err != nil {
		t.Fatal(err)
	}
	store := &rescheduleAfterRead{Gateway: gw, todos: todos, id: res.ID}
	proc := NewReminderProcessor(store, rec, nil)

	n, err := proc.ProcessDueReminders(ctx, gw.Now())
	if err != nil || n != 0 || len(rec.got) != 0 {
		t.Fatalf("rescheduled todo must not fire for its old time, got %d %v %+v", n, err, rec.got)
	}
	list, _ := todos.List(ctx)
	if list[0].State() != core.TodoPending {
		t.Fatalf("rescheduled todo should stay pending, got %s", list[0].State())
	}

	clock.Advance(24 * time.Hour)
	n, err = proc.ProcessDueReminders(ctx, gw.Now())
	if err != nil || n != 1 || len(rec.got) != 1 {
		t.Fatalf("rescheduled todo should fire at its new time, got %d %v", n, err)
	}
}

func TestReminderProcessorSkipsTodoCompletedAfterRead(t *testing.T) {
	gw, _ := newTestGateway(t)
	todos := NewTodoService(gw, 0, nil)
	rec := &recordingNotifier{}
	ctx := context.Background()

	res, err := todos.Create(ctx, TodoInput{Title: "pay rent", Date: "2025-06-15", Time: "11:00"})
	if err != nil {
		t.Fatal(err)
	}
	list, _ := todos.List(ctx)
	if err := todos.MarkDone(ctx, res.ID); err != nil {
		t.Fatal(err)
	}

	ok, err := gw.MarkNotified(ctx, res.ID, list[0].When)
	if err != nil || ok {
		t.Fatalf("stale mark must not apply to a completed todo, got %v %v", ok, err)
	}
	if n, _ := NewReminderProcessor(gw, rec, nil).ProcessDueReminders(ctx, gw.Now()); n != 0 || len(rec.got) != 0 {
		t.Fatalf("completed todo must not fire, got %d", n)
	}
}
