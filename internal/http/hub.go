package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"

	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/notify"
	"campuswal/internal/search"
)

const (
	debouncerKey  = "debouncer"
	searchTimeout = 5 * time.Second
)

// Searcher is satisfied by *services.ExpenseService.
type Searcher interface {
	List(ctx context.Context, f search.Filter) (core.ExpenseResult, error)
}

// Hub is the websocket channel. It pushes fired reminders to every client
// and answers live-search messages once the typing pauses. Each new
// connection triggers a reminder check.
type Hub struct {
	m        *melody.Melody
	searcher Searcher
	waker    Waker
	clock    clockwork.Clock
	delay    time.Duration
	logger   *log.Logger
}

type hubMessage struct {
	Type   string `json:"type"`
	Search string `json:"search,omitempty"`
	Filter string `json:"filter,omitempty"`
}

type hubEvent struct {
	Type     string              `json:"type"`
	Reminder *notify.Reminder    `json:"reminder,omitempty"`
	Filter   *search.Filter      `json:"query,omitempty"`
	Result   *core.ExpenseResult `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func NewHub(searcher Searcher, waker Waker, clock clockwork.Clock, logger *log.Logger) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.Discard()
	}
	h := &Hub{
		m:        melody.New(),
		searcher: searcher,
		waker:    waker,
		clock:    clock,
		delay:    search.DefaultDebounce,
		logger:   logger.WithComponent(log.ComponentWebsocket),
	}
	h.m.Config.MaxMessageSize = 4096
	h.m.Config.PingPeriod = 30 * time.Second
	h.m.Config.PongWait = 60 * time.Second

	h.m.HandleConnect(h.onConnect)
	h.m.HandleDisconnect(h.onDisconnect)
	h.m.HandleMessage(h.onMessage)
	h.m.HandleError(func(s *melody.Session, err error) {
		h.logger.Warn("WebSocket error", log.FieldError, err.Error())
	})
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.m.HandleRequest(w, r); err != nil {
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed", log.FieldError, err.Error())
	}
}

func (h *Hub) onConnect(s *melody.Session) {
	s.Set(debouncerKey, search.NewDebouncer(h.clock, h.delay))
	h.logger.Debug("Client connected", "clients", h.m.Len())
	if h.waker != nil {
		h.waker.Wake()
	}
}

func (h *Hub) onDisconnect(s *melody.Session) {
	if d, ok := sessionDebouncer(s); ok {
		d.Stop()
	}
	h.logger.Debug("Client disconnected", "clients", h.m.Len())
}

func sessionDebouncer(s *melody.Session) (*search.Debouncer, bool) {
	v, ok := s.Get(debouncerKey)
	if !ok {
		return nil, false
	}
	d, ok := v.(*search.Debouncer)
	return d, ok
}

func (h *Hub) onMessage(s *melody.Session, data []byte) {
	var msg hubMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "search" {
		h.send(s, hubEvent{Type: "error", Error: "expected a search message"})
		return
	}
	window, err := core.ParseWindow(msg.Filter)
	if err != nil {
		h.send(s, hubEvent{Type: "error", Error: err.Error()})
		return
	}
	f := search.Filter{Query: stripControl(msg.Search), Window: window}

	d, ok := sessionDebouncer(s)
	if !ok {
		return
	}
	d.Trigger(func() { h.runSearch(s, f) })
}

func (h *Hub) runSearch(s *melody.Session, f search.Filter) {
	ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
	defer cancel()

	res, err := h.searcher.List(ctx, f)
	if err != nil {
		h.logger.ErrorContext(ctx, "Live search failed",
			log.NewFields().WithFilter(f.Query, f.Window).WithError(err).WithOperation(log.OpSearch).ToSlice()...)
		h.send(s, hubEvent{Type: "error", Error: "search failed"})
		return
	}
	h.send(s, hubEvent{Type: "expenses", Filter: &f, Result: &res})
}

func (h *Hub) send(s *melody.Session, ev hubEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.Write(data); err != nil && !s.IsClosed() {
		h.logger.Warn("WebSocket write failed", log.FieldError, err.Error())
	}
}

// Notify broadcasts r to every connected client. It implements
// notify.Notifier.
func (h *Hub) Notify(_ context.Context, r notify.Reminder) error {
	data, err := json.Marshal(hubEvent{Type: "reminder", Reminder: &r})
	if err != nil {
		return err
	}
	return h.m.Broadcast(data)
}

// Clients returns the number of open sessions.
func (h *Hub) Clients() int {
	return h.m.Len()
}

func (h *Hub) Close() error {
	return h.m.Close()
}

var _ notify.Notifier = (*Hub)(nil)
