package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"campuswal/internal/amqp"
	"campuswal/internal/core"
	"campuswal/internal/log"
)

var when = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

func sampleReminder() Reminder {
	return NewReminder(core.Todo{ID: 7, Title: "Pay rent", When: core.MillisOf(when), Priority: core.PriorityHigh}, when)
}

func TestNewReminder(t *testing.T) {
	r := sampleReminder()
	if r.TodoID != 7 || r.Title != "Pay rent" || !r.When.Equal(when) {
		t.Fatalf("unexpected reminder %+v", r)
	}
	if len(r.Vibrate) != 3 || r.Vibrate[0] != 150 || r.Vibrate[1] != 100 || r.Vibrate[2] != 150 {
		t.Fatalf("unexpected vibration pattern %v", r.Vibrate)
	}
	r.Vibrate[0] = 0
	if VibrationPattern[0] != 150 {
		t.Fatalf("reminder must not alias the shared pattern")
	}
}

func TestReminderText(t *testing.T) {
	got := sampleReminder().Text(time.UTC)
	for _, want := range []string{"Pay rent", "Sun 15 Jun 09:30", "high priority"} {
		if !strings.Contains(got, want) {
			t.Errorf("text %q missing %q", got, want)
		}
	}
}

func TestMultiDeliversToAll(t *testing.T) {
	var calls []string
	ok := NotifierFunc(func(context.Context, Reminder) error { calls = append(calls, "ok"); return nil })
	bad := NotifierFunc(func(context.Context, Reminder) error { calls = append(calls, "bad"); return errors.New("down") })

	err := Multi{bad, ok, bad}.Notify(context.Background(), sampleReminder())
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if strings.Join(calls, ",") != "bad,ok,bad" {
		t.Fatalf("every notifier should run, got %v", calls)
	}
	if err := (Multi{ok}).Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(log.Config{Component: log.ComponentReminder, Output: &buf}))
	if err := n.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "todo_id=7") || !strings.Contains(buf.String(), "operation=fire") {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

type recordingPublisher struct {
	msgs []*amqp.ReminderMessage
	err  error
}

func (p *recordingPublisher) PublishReminder(_ context.Context, m *amqp.ReminderMessage) error {
	p.msgs = append(p.msgs, m)
	return p.err
}

func TestAMQPNotifierRoundTrip(t *testing.T) {
	p := &recordingPublisher{}
	if err := NewAMQPNotifier(p).Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatal(err)
	}
	if len(p.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(p.msgs))
	}
	back := FromMessage(p.msgs[0])
	want := sampleReminder()
	if back.TodoID != want.TodoID || back.Title != want.Title || back.Priority != want.Priority || !back.When.Equal(want.When) {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, want)
	}

	p.err = errors.New("broker down")
	if err := NewAMQPNotifier(p).Notify(context.Background(), sampleReminder()); err == nil {
		t.Fatal("expected publish error")
	}
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, m)
	}
	return tgbotapi.Message{}, s.err
}

func TestTelegramNotifier(t *testing.T) {
	s := &fakeSender{}
	n := NewTelegramNotifierWithSender(s, 42, time.UTC)
	if err := n.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 || s.sent[0].ChatID != 42 || !strings.Contains(s.sent[0].Text, "Pay rent") {
		t.Fatalf("unexpected sent messages %+v", s.sent)
	}

	s.err = errors.New("forbidden")
	if err := n.Notify(context.Background(), sampleReminder()); err == nil {
		t.Fatal("expected send error")
	}
}
