// Package backend is the persistence gateway. One Backend is chosen at
// startup and every read and write goes through the Gateway wrapping it.
package backend

import (
	"context"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/search"
)

// Backend is the record store contract both the native SQLite store and the
// local key-value fallback implement.
type Backend interface {
	SaveExpense(ctx context.Context, e core.Expense) (core.ID, error)
	// GetExpenses applies f inside the store.
	GetExpenses(ctx context.Context, f search.Filter, now time.Time) ([]core.Expense, error)

	SaveTodo(ctx context.Context, t core.Todo) (core.ID, error)
	GetTodos(ctx context.Context) ([]core.Todo, error)
	// UpdateTodo returns a *core.NotFoundError when id is unknown.
	UpdateTodo(ctx context.Context, id core.ID, patch core.TodoPatch) error
	// MarkNotified sets notified only if the todo is still pending with the
	// given fire time, and reports whether it did.
	MarkNotified(ctx context.Context, id core.ID, when core.Millis) (bool, error)
	// CompleteTodo sets done and doneAt only if the todo is not done yet.
	// A missing id yields a *core.NotFoundError.
	CompleteTodo(ctx context.Context, id core.ID, at core.Millis) (bool, error)
	DeleteTodos(ctx context.Context, ids []core.ID) error

	ClearAll(ctx context.Context) error
	Info() core.StorageInfo
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Local key-value fallback
	LocalDataDir string
}

// BackendType represents the type of backend
type BackendType string

const (
	// AutoBackend tries SQLite and falls back to the local store.
	AutoBackend   BackendType = "auto"
	SQLiteBackend BackendType = "sqlite"
	LocalBackend  BackendType = "local"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case AutoBackend, SQLiteBackend, LocalBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
