package services

import (
	"context"
	"strings"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/log"
)

// DefaultRetention is how long a completed todo is kept before the sweep
// removes it.
const DefaultRetention = 21 * 24 * time.Hour

const whenLayout = "2006-01-02T15:04"

// TodoStore is the part of the gateway the todo service and the reminder
// processor need.
type TodoStore interface {
	SaveTodo(ctx context.Context, t core.Todo) (core.SaveResult, error)
	GetTodos(ctx context.Context) ([]core.Todo, error)
	UpdateTodo(ctx context.Context, id core.ID, patch core.TodoPatch) error
	MarkNotified(ctx context.Context, id core.ID, when core.Millis) (bool, error)
	CompleteTodo(ctx context.Context, id core.ID) (bool, error)
	DeleteTodos(ctx context.Context, ids []core.ID) error
	Now() time.Time
	Location() *time.Location
}

// TodoInput is the add-todo form. Date is "2006-01-02" and Time is "15:04",
// both read in the configured zone.
type TodoInput struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Priority string `json:"priority"`
}

type TodoService struct {
	store     TodoStore
	retention time.Duration
	logger    *log.Logger
}

func NewTodoService(store TodoStore, retention time.Duration, logger *log.Logger) *TodoService {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &TodoService{store: store, retention: retention, logger: logger.WithComponent(log.ComponentTodo)}
}

// ParseWhen combines a date and a time-of-day into one instant in loc.
func ParseWhen(date, clock string, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, core.NewValidationError("date", core.ErrMissingDate)
	}
	if clock == "" {
		return time.Time{}, core.NewValidationError("time", core.ErrMissingTime)
	}
	if loc == nil {
		loc = time.Local
	}
	when, err := time.ParseInLocation(whenLayout, date+"T"+clock, loc)
	if err != nil {
		return time.Time{}, core.NewValidationError("when", err)
	}
	return when, nil
}

// Create stores a pending todo. Priority defaults to low.
func (s *TodoService) Create(ctx context.Context, in TodoInput) (core.SaveResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return core.SaveResult{}, core.NewValidationError("title", core.ErrEmptyTitle)
	}
	when, err := ParseWhen(in.Date, in.Time, s.store.Location())
	if err != nil {
		return core.SaveResult{}, err
	}
	priority, err := core.ParsePriority(in.Priority)
	if err != nil {
		return core.SaveResult{}, core.NewValidationError("priority", err)
	}

	res, err := s.store.SaveTodo(ctx, core.Todo{Title: title, When: core.MillisOf(when), Priority: priority})
	if err != nil {
		return core.SaveResult{}, err
	}
	s.logger.InfoContext(ctx, "Todo created",
		log.NewFields().WithTodo(res.ID, title, when).WithOperation(log.OpCreate).ToSlice()...)
	return res, nil
}

func (s *TodoService) List(ctx context.Context) ([]core.Todo, error) {
	return s.store.GetTodos(ctx)
}

// MarkDone completes the todo and starts its retention period. Completing a
// todo that is already done changes nothing, so its retention keeps running
// from the first completion.
func (s *TodoService) MarkDone(ctx context.Context, id core.ID) error {
	changed, err := s.store.CompleteTodo(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.DebugContext(ctx, "Todo already completed",
			log.FieldTodoID, int64(id), log.FieldOperation, log.OpUpdate)
	}
	return nil
}

// Reschedule moves the todo to a new fire time and makes it pending again,
// whatever its current state.
func (s *TodoService) Reschedule(ctx context.Context, id core.ID, date, clock string) error {
	when, err := ParseWhen(date, clock, s.store.Location())
	if err != nil {
		return err
	}
	at := core.MillisOf(when)
	done, notified := false, false
	if err := s.store.UpdateTodo(ctx, id, core.TodoPatch{When: &at, Done: &done, Notified: &notified}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Todo rescheduled",
		log.FieldTodoID, int64(id), log.FieldWhen, when.Format(time.RFC3339), log.FieldOperation, log.OpUpdate)
	return nil
}

// Sweep deletes completed todos whose retention period has elapsed and
// returns how many were removed. A completed todo without a completion time
// is removed too.
func (s *TodoService) Sweep(ctx context.Context) (int, error) {
	todos, err := s.store.GetTodos(ctx)
	if err != nil {
		return 0, err
	}
	now := s.store.Now()
	var expired []core.ID
	for _, t := range todos {
		if !t.Done {
			continue
		}
		if t.DoneAt.IsZero() || now.Sub(t.DoneAt.Time) >= s.retention {
			expired = append(expired, t.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := s.store.DeleteTodos(ctx, expired); err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Completed todos swept",
		log.FieldCount, len(expired), log.FieldOperation, log.OpSweep)
	return len(expired), nil
}
