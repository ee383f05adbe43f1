package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	published  []amqp091.Publishing
	keys       []string
	err        error
	deliveries chan amqp091.Delivery
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp091.Table) (<-chan amqp091.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error { return nil }

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(bool) error { a.acked = true; return nil }
func (a *fakeAck) Nack(_ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func TestPublishReminder(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch, exchangeName: "campuswal", queueName: "reminders"}

	when := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	msg := NewReminderMessage(7, "Pay rent", when, "high", []int{150, 100, 150}, when.Add(time.Second))
	if err := c.PublishReminder(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected one publishing, got %d", len(ch.published))
	}
	p := ch.published[0]
	if p.DeliveryMode != amqp091.Persistent || p.ContentType != "application/json" {
		t.Errorf("unexpected publishing %+v", p)
	}
	if p.MessageId == "" || p.MessageId != msg.MessageID {
		t.Errorf("message id not propagated: %q", p.MessageId)
	}
	if ch.keys[0] != "reminders" {
		t.Errorf("routing key = %q, want queue name", ch.keys[0])
	}

	got, err := ReminderMessageFromJSON(p.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TodoID != 7 || got.Title != "Pay rent" || !got.When.Equal(when) {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestPublishReminderError(t *testing.T) {
	c := &Client{channel: &fakeChannel{err: errors.New("channel closed")}}
	msg := NewReminderMessage(1, "x", time.Now(), "low", nil, time.Now())
	if err := c.PublishReminder(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewReminderMessageUniqueIDs(t *testing.T) {
	a := NewReminderMessage(1, "x", time.Now(), "low", nil, time.Now())
	b := NewReminderMessage(1, "x", time.Now(), "low", nil, time.Now())
	if a.MessageID == b.MessageID {
		t.Fatalf("expected distinct message ids")
	}
}

func TestSettle(t *testing.T) {
	valid, _ := NewReminderMessage(3, "Call", time.Now(), "low", nil, time.Now()).ToJSON()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantNack   bool
	}{
		{"valid message", valid, nil, true, false},
		{"handler failure", valid, errors.New("telegram down"), false, true},
		{"bad json", []byte("{"), nil, false, true},
		{"missing title", []byte(`{"todo_id":1}`), nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			settle(context.Background(), ack, tt.body, func(context.Context, *ReminderMessage) error {
				return tt.handlerErr
			})
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack {
				t.Errorf("acked=%v nacked=%v, want %v/%v", ack.acked, ack.nacked, tt.wantAck, tt.wantNack)
			}
			if ack.requeued {
				t.Errorf("reminders must never be requeued")
			}
		})
	}
}

func TestConsumeRemindersStopsWithContext(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	c := &Client{channel: ch, queueName: "reminders"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeReminders(ctx, func(context.Context, *ReminderMessage) error { return nil })
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumeRemindersClosedChannel(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp091.Delivery)}
	close(ch.deliveries)
	c := &Client{channel: ch}
	if err := c.ConsumeReminders(context.Background(), nil); err == nil {
		t.Fatal("expected error when delivery channel closes")
	}
}
