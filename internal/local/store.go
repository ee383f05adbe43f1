// Package local is the fallback backend: two JSON arrays, one of expenses and
// one of todos, kept under fixed keys in a key-value store. Filtering runs in
// process after loading the whole array.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/search"
)

// Storage keys for the two record arrays.
const (
	ExpensesKey = "campuswal_expenses"
	TodosKey    = "campuswal_todos"
)

// Backend names reported in StorageInfo.
const (
	BackendName  = "local"
	MemoryName   = "memory"
	memoryLocate = "in-process"
)

type Store struct {
	mu       sync.Mutex
	kv       KV
	name     string
	location string
	now      func() time.Time
}

// New wraps kv. name and location are reported by Info.
func New(kv KV, name, location string) *Store {
	return &Store{kv: kv, name: name, location: location, now: time.Now}
}

// NewFile opens a store persisted under dir.
func NewFile(dir string) (*Store, error) {
	kv, err := NewFileKV(dir)
	if err != nil {
		return nil, err
	}
	return New(kv, BackendName, dir), nil
}

// NewMemory returns a store that lives only as long as the process.
func NewMemory() *Store {
	return New(NewMemoryKV(), MemoryName, memoryLocate)
}

// WithClock replaces the clock used to assign ids.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Info() core.StorageInfo {
	return core.StorageInfo{Type: s.name, Location: s.location, IsNative: false}
}

func (s *Store) Close() error { return nil }

func load[T any](kv KV, key string) ([]T, error) {
	b, ok, err := kv.Get(key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if !ok || len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func save[T any](kv KV, key string, v []T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(key, b)
}

// nextID returns the current epoch millisecond, bumped past maxID so ids
// stay unique and increasing within one array.
func (s *Store) nextID(maxID core.ID) core.ID {
	id := core.ID(s.now().UnixMilli())
	if id <= maxID {
		id = maxID + 1
	}
	return id
}

func maxExpenseID(list []core.Expense) core.ID {
	var m core.ID
	for _, e := range list {
		m = max(m, e.ID)
	}
	return m
}

func maxTodoID(list []core.Todo) core.ID {
	var m core.ID
	for _, t := range list {
		m = max(m, t.ID)
	}
	return m
}

// SaveExpense prepends e so the array stays newest first.
func (s *Store) SaveExpense(_ context.Context, e core.Expense) (core.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Expense](s.kv, ExpensesKey)
	if err != nil {
		return 0, err
	}
	e.ID = s.nextID(maxExpenseID(list))
	list = append([]core.Expense{e}, list...)
	if err := save(s.kv, ExpensesKey, list); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *Store) GetExpenses(_ context.Context, f search.Filter, now time.Time) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Expense](s.kv, ExpensesKey)
	if err != nil {
		return nil, err
	}
	return f.Apply(list, now), nil
}

func (s *Store) SaveTodo(_ context.Context, t core.Todo) (core.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Todo](s.kv, TodosKey)
	if err != nil {
		return 0, err
	}
	t.ID = s.nextID(maxTodoID(list))
	t.Done, t.Notified, t.DoneAt = false, false, core.Millis{}
	list = append([]core.Todo{t}, list...)
	if err := save(s.kv, TodosKey, list); err != nil {
		return 0, err
	}
	return t.ID, nil
}

func (s *Store) GetTodos(_ context.Context) ([]core.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load[core.Todo](s.kv, TodosKey)
}

func (s *Store) UpdateTodo(_ context.Context, id core.ID, patch core.TodoPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Todo](s.kv, TodosKey)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			list[i] = patch.Apply(list[i])
			return save(s.kv, TodosKey, list)
		}
	}
	return core.NewNotFoundError("todo", id)
}

// MarkNotified flags the todo as fired only while it is still pending with
// the given fire time.
func (s *Store) MarkNotified(_ context.Context, id core.ID, when core.Millis) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Todo](s.kv, TodosKey)
	if err != nil {
		return false, err
	}
	for i := range list {
		t := &list[i]
		if t.ID != id {
			continue
		}
		if t.Done || t.Notified || t.When.UnixMilli() != when.UnixMilli() {
			return false, nil
		}
		t.Notified = true
		return true, save(s.kv, TodosKey, list)
	}
	return false, nil
}

// CompleteTodo marks an open todo done at the given time. A todo that is
// already done is left untouched.
func (s *Store) CompleteTodo(_ context.Context, id core.ID, at core.Millis) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Todo](s.kv, TodosKey)
	if err != nil {
		return false, err
	}
	for i := range list {
		t := &list[i]
		if t.ID != id {
			continue
		}
		if t.Done {
			return false, nil
		}
		t.Done, t.DoneAt = true, at
		return true, save(s.kv, TodosKey, list)
	}
	return false, core.NewNotFoundError("todo", id)
}

func (s *Store) DeleteTodos(_ context.Context, ids []core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := load[core.Todo](s.kv, TodosKey)
	if err != nil {
		return err
	}
	drop := make(map[core.ID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := list[:0]
	for _, t := range list {
		if _, ok := drop[t.ID]; !ok {
			kept = append(kept, t)
		}
	}
	return save(s.kv, TodosKey, kept)
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ExpensesKey); err != nil {
		return err
	}
	return s.kv.Remove(TodosKey)
}
