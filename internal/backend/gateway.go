package backend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/aggregate"
	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/search"
)

// ErrClosed is returned by every operation after Teardown.
var ErrClosed = errors.New("gateway closed")

// Gateway validates input, stamps records from its clock and forwards to
// the one Backend chosen at Init.
type Gateway struct {
	factory Factory
	config  Config
	clock   clockwork.Clock
	loc     *time.Location
	logger  *log.Logger

	once    sync.Once
	initErr error

	mu      sync.RWMutex
	backend Backend
	cleanup CleanupFunc
	closed  bool
}

type Option func(*Gateway)

func WithClock(c clockwork.Clock) Option {
	return func(g *Gateway) { g.clock = c }
}

// WithLocation sets the zone for calendar windows.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) { g.loc = loc }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

func NewGateway(factory Factory, config Config, opts ...Option) *Gateway {
	g := &Gateway{
		factory: factory,
		config:  config,
		clock:   clockwork.NewRealClock(),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentBackend)
	}
	return g
}

// Init selects the backend. Only the first call does any work; later calls
// return the same result. After Teardown it opens nothing and fails.
func (g *Gateway) Init(ctx context.Context) error {
	g.once.Do(func() {
		g.mu.RLock()
		closed := g.closed
		g.mu.RUnlock()
		if closed {
			g.initErr = core.NewStorageError("init", ErrClosed)
			return
		}
		res, err := g.factory.CreateBackend(ctx, g.config)
		if err != nil {
			g.initErr = core.NewStorageError("init", err)
			return
		}
		g.mu.Lock()
		if g.closed {
			g.mu.Unlock()
			if res.Cleanup != nil {
				_ = res.Cleanup()
			}
			g.initErr = core.NewStorageError("init", ErrClosed)
			return
		}
		g.backend = res.Backend
		g.cleanup = res.Cleanup
		g.mu.Unlock()

		info := res.Backend.Info()
		g.logger.InfoContext(ctx, "Persistence gateway ready",
			log.FieldBackend, info.Type,
			"location", info.Location,
			"native", info.IsNative)
	})
	return g.initErr
}

// Teardown releases the backend. It is safe to call more than once.
func (g *Gateway) Teardown() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	if g.cleanup != nil {
		return g.cleanup()
	}
	return nil
}

// Now is the gateway clock in the configured zone.
func (g *Gateway) Now() time.Time {
	return g.clock.Now().In(g.loc)
}

func (g *Gateway) Location() *time.Location { return g.loc }

func (g *Gateway) active(ctx context.Context) (Backend, error) {
	if err := g.Init(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return nil, core.NewStorageError("use", ErrClosed)
	}
	return g.backend, nil
}

func expenseField(err error) string {
	if errors.Is(err, core.ErrEmptyItem) {
		return "item"
	}
	return "amount"
}

func todoField(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "title"
	case errors.Is(err, core.ErrMissingWhen):
		return "when"
	default:
		return "priority"
	}
}

// SaveExpense validates and persists e. Missing date or timestamp are filled
// from the gateway clock.
func (g *Gateway) SaveExpense(ctx context.Context, e core.Expense) (core.SaveResult, error) {
	b, err := g.active(ctx)
	if err != nil {
		return core.SaveResult{}, err
	}
	if err := e.Validate(); err != nil {
		return core.SaveResult{}, core.NewValidationError(expenseField(err), err)
	}
	e = e.Normalize(g.Now())

	id, err := b.SaveExpense(ctx, e)
	if err != nil {
		return core.SaveResult{}, core.NewStorageError("save expense", err)
	}
	g.logger.DebugContext(ctx, "Expense saved",
		log.NewFields().WithExpense(e.Item, e.Amount.Cents).WithOperation(log.OpCreate).ToSlice()...)
	return core.SaveResult{Success: true, ID: id}, nil
}

// GetExpenses returns the expenses passing f, newest first, with their total.
func (g *Gateway) GetExpenses(ctx context.Context, f search.Filter) (core.ExpenseResult, error) {
	b, err := g.active(ctx)
	if err != nil {
		return core.ExpenseResult{}, err
	}
	list, err := b.GetExpenses(ctx, f, g.Now())
	if err != nil {
		return core.ExpenseResult{}, core.NewStorageError("get expenses", err)
	}
	return core.NewExpenseResult(aggregate.SortNewestFirst(list)), nil
}

// SaveTodo validates and persists t as a pending todo.
func (g *Gateway) SaveTodo(ctx context.Context, t core.Todo) (core.SaveResult, error) {
	b, err := g.active(ctx)
	if err != nil {
		return core.SaveResult{}, err
	}
	if err := t.Validate(); err != nil {
		return core.SaveResult{}, core.NewValidationError(todoField(err), err)
	}
	if t.Priority == "" {
		t.Priority = core.PriorityLow
	}
	t.Done, t.Notified, t.DoneAt = false, false, core.Millis{}

	id, err := b.SaveTodo(ctx, t)
	if err != nil {
		return core.SaveResult{}, core.NewStorageError("save todo", err)
	}
	return core.SaveResult{Success: true, ID: id}, nil
}

// GetTodos returns every todo, most recently created first.
func (g *Gateway) GetTodos(ctx context.Context) ([]core.Todo, error) {
	b, err := g.active(ctx)
	if err != nil {
		return nil, err
	}
	todos, err := b.GetTodos(ctx)
	if err != nil {
		return nil, core.NewStorageError("get todos", err)
	}
	sort.SliceStable(todos, func(i, j int) bool { return todos[i].ID > todos[j].ID })
	return todos, nil
}

// UpdateTodo merges patch into the todo with id.
func (g *Gateway) UpdateTodo(ctx context.Context, id core.ID, patch core.TodoPatch) error {
	b, err := g.active(ctx)
	if err != nil {
		return err
	}
	if err := patch.Validate(); err != nil {
		return core.NewValidationError(todoField(err), err)
	}
	if err := b.UpdateTodo(ctx, id, patch); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		return core.NewStorageError("update todo", err)
	}
	return nil
}

// MarkNotified fires the todo with id if it is still pending at when. It
// reports false when the todo changed since it was read.
func (g *Gateway) MarkNotified(ctx context.Context, id core.ID, when core.Millis) (bool, error) {
	b, err := g.active(ctx)
	if err != nil {
		return false, err
	}
	ok, err := b.MarkNotified(ctx, id, when)
	if err != nil {
		return false, core.NewStorageError("mark notified", err)
	}
	return ok, nil
}

// CompleteTodo marks the todo done, stamping doneAt from the gateway clock.
// An already completed todo keeps its original doneAt and false is returned.
func (g *Gateway) CompleteTodo(ctx context.Context, id core.ID) (bool, error) {
	b, err := g.active(ctx)
	if err != nil {
		return false, err
	}
	ok, err := b.CompleteTodo(ctx, id, core.MillisOf(g.Now()))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, err
		}
		return false, core.NewStorageError("complete todo", err)
	}
	return ok, nil
}

// DeleteTodos removes the todos with the given ids.
func (g *Gateway) DeleteTodos(ctx context.Context, ids []core.ID) error {
	b, err := g.active(ctx)
	if err != nil {
		return err
	}
	if err := b.DeleteTodos(ctx, ids); err != nil {
		return core.NewStorageError("delete todos", err)
	}
	return nil
}

// ExportData snapshots every stored record.
func (g *Gateway) ExportData(ctx context.Context) (core.Export, error) {
	expenses, err := g.GetExpenses(ctx, search.Filter{})
	if err != nil {
		return core.Export{}, err
	}
	todos, err := g.GetTodos(ctx)
	if err != nil {
		return core.Export{}, err
	}
	return core.Export{
		Expenses:   expenses.Expenses,
		Todos:      todos,
		ExportDate: g.clock.Now().UTC(),
		Version:    core.ExportVersion,
	}, nil
}

// ClearAllData irreversibly deletes every expense and todo.
func (g *Gateway) ClearAllData(ctx context.Context) error {
	b, err := g.active(ctx)
	if err != nil {
		return err
	}
	if err := b.ClearAll(ctx); err != nil {
		return core.NewStorageError("clear", err)
	}
	g.logger.WarnContext(ctx, "All data cleared", log.FieldOperation, log.OpClear)
	return nil
}

// StorageInfo describes the active backend.
func (g *Gateway) StorageInfo(ctx context.Context) (core.StorageInfo, error) {
	b, err := g.active(ctx)
	if err != nil {
		return core.StorageInfo{}, err
	}
	return b.Info(), nil
}
