package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/search"
)

const selectExpenses = `SELECT id, item, amount_cents, date, timestamp FROM expenses`

func (r *SQLiteRepository) SaveExpense(ctx context.Context, e core.Expense) (core.ID, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (item, amount_cents, date, timestamp) VALUES (?, ?, ?, ?)`,
		e.Item, e.Amount.Cents, e.Date.Format(time.RFC3339Nano), e.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", id,
		"item", e.Item,
		"amount_cents", e.Amount.Cents)

	return core.ID(id), nil
}

// GetExpenses runs the filter inside SQLite, newest first.
func (r *SQLiteRepository) GetExpenses(ctx context.Context, f search.Filter, now time.Time) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	if f.Query != "" {
		where = append(where, itemMatchesFunc+"(item, ?)")
		args = append(args, f.Query)
	}
	bounds := f.Bounds(now)
	if bounds.From != 0 {
		where = append(where, "timestamp >= ?")
		args = append(args, bounds.From)
	}
	if bounds.To != 0 {
		where = append(where, "timestamp < ?")
		args = append(args, bounds.To)
	}

	q := selectExpenses
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Item, &e.Amount.Cents, &date, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, fmt.Errorf("parse expense %d date: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}
