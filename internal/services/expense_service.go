package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuswal/internal/aggregate"
	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/search"
)

// ExpenseStore is the part of the gateway the expense service needs.
type ExpenseStore interface {
	SaveExpense(ctx context.Context, e core.Expense) (core.SaveResult, error)
	GetExpenses(ctx context.Context, f search.Filter) (core.ExpenseResult, error)
	Now() time.Time
}

// ExpenseInput is the add-expense form: a category pick, the free-text
// name used when the pick is Other, and the entered amount.
type ExpenseInput struct {
	Category string `json:"category"`
	Custom   string `json:"custom"`
	Amount   string `json:"amount"`
}

// ExpenseService turns form input into stored expenses and computes the
// summary and list views over the current filter.
type ExpenseService struct {
	store  ExpenseStore
	logger *log.Logger
}

func NewExpenseService(store ExpenseStore, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{store: store, logger: logger.WithComponent(log.ComponentExpense)}
}

// Add validates the form and stores the expense stamped with the current
// time. Input errors come back as *core.ValidationError and nothing is
// written.
func (s *ExpenseService) Add(ctx context.Context, in ExpenseInput) (core.SaveResult, error) {
	item, err := core.ResolveItem(in.Category, in.Custom)
	if err != nil {
		field := "item"
		if errors.Is(err, core.ErrUnknownCategory) {
			field = "category"
		}
		return core.SaveResult{}, core.NewValidationError(field, err)
	}
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.SaveResult{}, core.NewValidationError("amount", err)
	}

	res, err := s.store.SaveExpense(ctx, core.Expense{Item: item, Amount: core.Money{Cents: cents}})
	if err != nil {
		return core.SaveResult{}, err
	}
	s.logger.InfoContext(ctx, "Expense added",
		log.NewFields().WithExpense(item, cents).WithOperation(log.OpCreate).ToSlice()...)
	return res, nil
}

// List returns the expenses passing f, newest first.
func (s *ExpenseService) List(ctx context.Context, f search.Filter) (core.ExpenseResult, error) {
	return s.store.GetExpenses(ctx, f)
}

// Summary computes the four window cards over the expenses passing f.
// While a search query is active every card shows the search total.
func (s *ExpenseService) Summary(ctx context.Context, f search.Filter) (aggregate.Summary, error) {
	res, err := s.store.GetExpenses(ctx, f)
	if err != nil {
		return aggregate.Summary{}, err
	}
	var filtered *core.ExpenseResult
	if f.IsActive() {
		filtered = &res
	}
	return aggregate.Summarize(res.Expenses, s.store.Now(), filtered), nil
}

// View groups the expenses passing f for one reporting window.
func (s *ExpenseService) View(ctx context.Context, window core.Window, f search.Filter) (aggregate.View, error) {
	if window == core.WindowAll {
		return aggregate.View{}, core.NewValidationError("view", fmt.Errorf("%w: %q", core.ErrInvalidWindow, window))
	}
	res, err := s.store.GetExpenses(ctx, f)
	if err != nil {
		return aggregate.View{}, err
	}
	return aggregate.BuildView(window, res.Expenses, s.store.Now())
}
