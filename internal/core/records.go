package core

import (
	"bytes"
	"strconv"
	"time"
)

// ExportVersion is written into every backup snapshot.
const ExportVersion = "2.0"

// SaveResult is returned by every create operation.
type SaveResult struct {
	Success bool `json:"success"`
	ID      ID   `json:"id"`
}

// ExpenseResult is a filtered expense listing with its aggregate.
type ExpenseResult struct {
	Expenses []Expense `json:"expenses"`
	Total    Money     `json:"total"`
	Count    int       `json:"count"`
}

// NewExpenseResult computes Total and Count over expenses.
func NewExpenseResult(expenses []Expense) ExpenseResult {
	if expenses == nil {
		expenses = []Expense{}
	}
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return ExpenseResult{Expenses: expenses, Total: total, Count: len(expenses)}
}

// Export is the backup snapshot of every stored record.
type Export struct {
	Expenses   []Expense `json:"expenses"`
	Todos      []Todo    `json:"todos"`
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
}

// StorageInfo describes the active backend.
type StorageInfo struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	IsNative bool   `json:"isNative"`
}

func (m Millis) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, m.UnixMilli(), 10), nil
}

func (m *Millis) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = Millis{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*m = FromUnixMilli(int64(f))
	return nil
}
