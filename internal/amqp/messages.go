package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReminderMessage is published once for every fired todo reminder.
type ReminderMessage struct {
	MessageID string    `json:"message_id"`
	TodoID    int64     `json:"todo_id"`
	Title     string    `json:"title"`
	When      time.Time `json:"when"`
	Priority  string    `json:"priority"`
	Vibrate   []int     `json:"vibrate,omitempty"`
	FiredAt   time.Time `json:"fired_at"`
}

// NewReminderMessage stamps a fresh message id.
func NewReminderMessage(todoID int64, title string, when time.Time, priority string, vibrate []int, firedAt time.Time) *ReminderMessage {
	return &ReminderMessage{
		MessageID: uuid.NewString(),
		TodoID:    todoID,
		Title:     title,
		When:      when,
		Priority:  priority,
		Vibrate:   vibrate,
		FiredAt:   firedAt,
	}
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON decodes a delivery body.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TodoID == 0 || msg.Title == "" {
		return nil, fmt.Errorf("reminder message missing todo id or title")
	}
	return &msg, nil
}
