// Package notify delivers fired todo reminders. Every channel implements
// Notifier; Multi fans one reminder out to several of them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/log"
)

// VibrationPattern is the haptic pulse attached to every reminder, in ms:
// buzz, pause, buzz.
var VibrationPattern = []int{150, 100, 150}

// Reminder is one fired todo.
type Reminder struct {
	TodoID   core.ID       `json:"todoId"`
	Title    string        `json:"title"`
	When     time.Time     `json:"when"`
	Priority core.Priority `json:"priority"`
	Vibrate  []int         `json:"vibrate"`
	FiredAt  time.Time     `json:"firedAt"`
}

func NewReminder(t core.Todo, firedAt time.Time) Reminder {
	return Reminder{
		TodoID:   t.ID,
		Title:    t.Title,
		When:     t.When.Time,
		Priority: t.Priority,
		Vibrate:  append([]int(nil), VibrationPattern...),
		FiredAt:  firedAt,
	}
}

// Text renders the reminder for plain-text channels.
func (r Reminder) Text(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("⏰ Reminder: %s\n%s · %s priority",
		r.Title, r.When.In(loc).Format("Mon 02 Jan 15:04"), r.Priority)
}

type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, r Reminder) error

func (f NotifierFunc) Notify(ctx context.Context, r Reminder) error { return f(ctx, r) }

// LogNotifier writes a log line per reminder.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	n.logger.InfoContext(ctx, "Reminder fired",
		log.NewFields().
			WithTodo(r.TodoID, r.Title, r.When).
			WithOperation(log.OpFire).
			ToSlice()...)
	return nil
}

// Multi delivers to every notifier and joins their errors. One failing
// channel does not stop the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
