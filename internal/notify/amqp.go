package notify

import (
	"context"
	"fmt"

	"campuswal/internal/amqp"
	"campuswal/internal/core"
)

// Publisher is satisfied by *amqp.Client.
type Publisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// AMQPNotifier publishes reminders for the out-of-process notifier.
type AMQPNotifier struct {
	publisher Publisher
}

func NewAMQPNotifier(p Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: p}
}

func (n *AMQPNotifier) Notify(ctx context.Context, r Reminder) error {
	msg := amqp.NewReminderMessage(int64(r.TodoID), r.Title, r.When, string(r.Priority), r.Vibrate, r.FiredAt)
	if err := n.publisher.PublishReminder(ctx, msg); err != nil {
		return fmt.Errorf("amqp notify todo %d: %w", r.TodoID, err)
	}
	return nil
}

// FromMessage rebuilds a Reminder from a consumed message.
func FromMessage(m *amqp.ReminderMessage) Reminder {
	return Reminder{
		TodoID:   core.ID(m.TodoID),
		Title:    m.Title,
		When:     m.When,
		Priority: core.Priority(m.Priority),
		Vibrate:  m.Vibrate,
		FiredAt:  m.FiredAt,
	}
}
