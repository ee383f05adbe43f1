package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"campuswal/internal/core"
)

const (
	ExpensesTab = "Expenses"
	TodosTab    = "Todos"
)

// SheetsConfig selects the spreadsheet and the service account used to
// write it. Inline JSON wins over the file.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// SheetsSink mirrors the snapshot into two tabs of a spreadsheet, one row per
// record under a header row.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	loc           *time.Location
}

// NewSheetsSink authenticates with the service account from cfg. Extra
// client options are appended after the credentials.
func NewSheetsSink(ctx context.Context, cfg SheetsConfig, loc *time.Location, opts ...option.ClientOption) (*SheetsSink, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var base []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		base = append(base, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		base = append(base, option.WithCredentialsJSON(data))
	}
	base = append(base, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SheetsSink{svc: svc, spreadsheetID: cfg.SpreadsheetID, loc: loc}, nil
}

func (s *SheetsSink) Name() string { return "sheets:" + s.spreadsheetID }

func (s *SheetsSink) Write(ctx context.Context, exp core.Export) error {
	if err := s.replace(ctx, ExpensesTab, ExpenseRows(exp.Expenses, s.loc)); err != nil {
		return err
	}
	return s.replace(ctx, TodosTab, TodoRows(exp.Todos, s.loc))
}

func (s *SheetsSink) replace(ctx context.Context, tab string, rows [][]any) error {
	rng := tab + "!A:Z"
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	vr := &sheets.ValueRange{Values: rows}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, tab+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}
	return nil
}

// ExpenseRows lays out expenses as sheet rows, header first.
func ExpenseRows(expenses []core.Expense, loc *time.Location) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	rows = append(rows, []any{"ID", "Date", "Item", "Amount"})
	for _, e := range expenses {
		rows = append(rows, []any{
			int64(e.ID),
			e.Date.In(loc).Format("2006-01-02 15:04"),
			e.Item,
			e.Amount.String(),
		})
	}
	return rows
}

// TodoRows lays out todos as sheet rows, header first. Times left unset
// are blank.
func TodoRows(todos []core.Todo, loc *time.Location) [][]any {
	rows := make([][]any, 0, len(todos)+1)
	rows = append(rows, []any{"ID", "Title", "When", "Priority", "Done", "Notified", "Done At"})
	for _, t := range todos {
		rows = append(rows, []any{
			int64(t.ID),
			t.Title,
			formatMillis(t.When, loc),
			string(t.Priority),
			t.Done,
			t.Notified,
			formatMillis(t.DoneAt, loc),
		})
	}
	return rows
}

func formatMillis(m core.Millis, loc *time.Location) string {
	if m.IsZero() {
		return ""
	}
	return m.In(loc).Format("2006-01-02 15:04")
}
