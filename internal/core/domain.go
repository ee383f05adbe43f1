package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CategoryFood   = "Food"
	CategoryTravel = "Travel"
	CategoryBooks  = "Books"
	CategoryOther  = "Other"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type (
	// ID identifies a stored record. Backends assign it and never reuse it.
	ID int64

	Priority string

	Expense struct {
		ID        ID        `json:"id"`
		Item      string    `json:"item"`
		Amount    Money     `json:"amount"`
		Date      time.Time `json:"date"`
		Timestamp int64     `json:"timestamp"` // epoch ms mirror of Date
	}

	Todo struct {
		ID       ID       `json:"id"`
		Title    string   `json:"title"`
		When     Millis   `json:"when"`
		Priority Priority `json:"priority"`
		Done     bool     `json:"done"`
		DoneAt   Millis   `json:"doneAt,omitzero"`
		Notified bool     `json:"notified"`
	}

	// TodoPatch carries the fields to merge into an existing todo.
	// Nil fields are left untouched.
	TodoPatch struct {
		Title    *string   `json:"title,omitempty"`
		When     *Millis   `json:"when,omitempty"`
		Priority *Priority `json:"priority,omitempty"`
		Done     *bool     `json:"done,omitempty"`
		DoneAt   *Millis   `json:"doneAt,omitempty"`
		Notified *bool     `json:"notified,omitempty"`
	}
)

// TodoState is the logical state derived from the done/notified flags.
type TodoState string

const (
	TodoPending   TodoState = "pending"
	TodoFired     TodoState = "fired"
	TodoCompleted TodoState = "completed"
)

var (
	ErrEmptyItem       = errors.New("empty item")
	ErrEmptyTitle      = errors.New("empty title")
	ErrMissingWhen     = errors.New("missing reminder time")
	ErrMissingDate     = errors.New("missing date")
	ErrMissingTime     = errors.New("missing time")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrUnknownCategory = errors.New("unknown category")
)

// Categories returns the fixed expense categories in display order.
func Categories() []string {
	return []string{CategoryFood, CategoryTravel, CategoryBooks, CategoryOther}
}

// ResolveItem maps a category pick to the stored item name. For "Other" the
// trimmed custom name is used instead of the category.
func ResolveItem(category, custom string) (string, error) {
	switch category {
	case CategoryFood, CategoryTravel, CategoryBooks:
		return category, nil
	case CategoryOther:
		item := strings.TrimSpace(custom)
		if item == "" {
			return "", ErrEmptyItem
		}
		return item, nil
	default:
		return "", fmt.Errorf("%w %q: must be one of %v", ErrUnknownCategory, category, Categories())
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Item) == "" {
		return ErrEmptyItem
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Normalize fills Date and Timestamp from each other, or from now when both
// are missing.
func (e Expense) Normalize(now time.Time) Expense {
	switch {
	case e.Date.IsZero() && e.Timestamp == 0:
		e.Date = now
		e.Timestamp = now.UnixMilli()
	case e.Date.IsZero():
		e.Date = time.UnixMilli(e.Timestamp)
	case e.Timestamp == 0:
		e.Timestamp = e.Date.UnixMilli()
	}
	return e
}

// ParsePriority accepts the three known levels; empty means low.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityLow, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", ErrInvalidPriority
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (t Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.When.IsZero() {
		return ErrMissingWhen
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

func (t Todo) State() TodoState {
	switch {
	case t.Done:
		return TodoCompleted
	case t.Notified:
		return TodoFired
	default:
		return TodoPending
	}
}

// IsDue reports whether the reminder should fire at now. It is true only for
// a pending todo whose fire time has been reached.
func (t Todo) IsDue(now time.Time) bool {
	return !t.Done && !t.Notified && !now.Before(t.When.Time)
}

// Apply merges the patch into t. Clearing Done also clears DoneAt.
func (p TodoPatch) Apply(t Todo) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.When != nil {
		t.When = *p.When
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Done != nil {
		t.Done = *p.Done
		if !t.Done {
			t.DoneAt = Millis{}
		}
	}
	if p.DoneAt != nil {
		t.DoneAt = *p.DoneAt
	}
	if p.Notified != nil {
		t.Notified = *p.Notified
	}
	return t
}

func (p TodoPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.When != nil && p.When.IsZero() {
		return ErrMissingWhen
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// IsEmpty returns true if the patch changes nothing.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.When == nil && p.Priority == nil &&
		p.Done == nil && p.DoneAt == nil && p.Notified == nil
}

// Millis is an instant encoded as epoch milliseconds on the wire.
type Millis struct {
	time.Time
}

func MillisOf(t time.Time) Millis {
	if t.IsZero() {
		return Millis{}
	}
	return Millis{Time: time.UnixMilli(t.UnixMilli())}
}

func FromUnixMilli(ms int64) Millis {
	if ms == 0 {
		return Millis{}
	}
	return Millis{Time: time.UnixMilli(ms)}
}

// UnixMilli returns 0 for the zero instant.
func (m Millis) UnixMilli() int64 {
	if m.IsZero() {
		return 0
	}
	return m.Time.UnixMilli()
}
