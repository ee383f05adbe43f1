package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"campuswal/internal/core"
)

const selectTodos = `SELECT id, title, when_time, priority, done, notified, done_at FROM todos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(s rowScanner) (core.Todo, error) {
	var (
		t              core.Todo
		when           int64
		priority       string
		done, notified bool
		doneAt         sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.Title, &when, &priority, &done, &notified, &doneAt); err != nil {
		return core.Todo{}, err
	}
	t.When = core.FromUnixMilli(when)
	t.Priority = core.Priority(priority)
	t.Done = done
	t.Notified = notified
	if doneAt.Valid {
		t.DoneAt = core.FromUnixMilli(doneAt.Int64)
	}
	return t, nil
}

func nullMillis(m core.Millis) sql.NullInt64 {
	if m.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.UnixMilli(), Valid: true}
}

func (r *SQLiteRepository) SaveTodo(ctx context.Context, t core.Todo) (core.ID, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (title, when_time, priority, done, notified, done_at) VALUES (?, ?, ?, 0, 0, NULL)`,
		t.Title, t.When.UnixMilli(), string(t.Priority))
	if err != nil {
		return 0, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("todo id: %w", err)
	}
	slog.DebugContext(ctx, "Todo saved to SQLite", "id", id, "when", t.When.UnixMilli())
	return core.ID(id), nil
}

// GetTodos returns every todo, most recently created first.
func (r *SQLiteRepository) GetTodos(ctx context.Context) ([]core.Todo, error) {
	rows, err := r.db.QueryContext(ctx, selectTodos+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	out := []core.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return out, nil
}

// UpdateTodo merges patch into the stored todo. A missing id yields a
// *core.NotFoundError.
func (r *SQLiteRepository) UpdateTodo(ctx context.Context, id core.ID, patch core.TodoPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanTodo(tx.QueryRowContext(ctx, selectTodos+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.NewNotFoundError("todo", id)
	}
	if err != nil {
		return fmt.Errorf("load todo %d: %w", id, err)
	}

	next := patch.Apply(cur)
	_, err = tx.ExecContext(ctx,
		`UPDATE todos SET title = ?, when_time = ?, priority = ?, done = ?, notified = ?, done_at = ? WHERE id = ?`,
		next.Title, next.When.UnixMilli(), string(next.Priority), next.Done, next.Notified, nullMillis(next.DoneAt), id)
	if err != nil {
		return fmt.Errorf("update todo %d: %w", id, err)
	}
	return tx.Commit()
}

// MarkNotified flags the todo as fired only while it is still pending with
// the given fire time. It reports whether the row changed.
func (r *SQLiteRepository) MarkNotified(ctx context.Context, id core.ID, when core.Millis) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET notified = 1 WHERE id = ? AND done = 0 AND notified = 0 AND when_time = ?`,
		id, when.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("mark todo %d notified: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark todo %d notified: %w", id, err)
	}
	return n == 1, nil
}

// CompleteTodo marks an open todo done at the given time. A todo that is
// already done is left untouched and false is returned.
func (r *SQLiteRepository) CompleteTodo(ctx context.Context, id core.ID, at core.Millis) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET done = 1, done_at = ? WHERE id = ? AND done = 0`,
		nullMillis(at), id)
	if err != nil {
		return false, fmt.Errorf("complete todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete todo %d: %w", id, err)
	}
	if n == 1 {
		return true, nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM todos WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, core.NewNotFoundError("todo", id)
	}
	if err != nil {
		return false, fmt.Errorf("load todo %d: %w", id, err)
	}
	return false, nil
}

func (r *SQLiteRepository) DeleteTodos(ctx context.Context, ids []core.ID) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete todos: %w", err)
	}
	return nil
}
