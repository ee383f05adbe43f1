// Package http serves the JSON API and the websocket channel.
package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/jonboulle/clockwork"

	"campuswal/internal/aggregate"
	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/middleware/ratelimit"
	"campuswal/internal/search"
	"campuswal/internal/services"
)

// ExpenseAPI is satisfied by *services.ExpenseService.
type ExpenseAPI interface {
	Add(ctx context.Context, in services.ExpenseInput) (core.SaveResult, error)
	List(ctx context.Context, f search.Filter) (core.ExpenseResult, error)
	Summary(ctx context.Context, f search.Filter) (aggregate.Summary, error)
	View(ctx context.Context, window core.Window, f search.Filter) (aggregate.View, error)
}

// TodoAPI is satisfied by *services.TodoService.
type TodoAPI interface {
	Create(ctx context.Context, in services.TodoInput) (core.SaveResult, error)
	List(ctx context.Context) ([]core.Todo, error)
	MarkDone(ctx context.Context, id core.ID) error
	Reschedule(ctx context.Context, id core.ID, date, clock string) error
}

// DataAPI is satisfied by *backend.Gateway.
type DataAPI interface {
	ExportData(ctx context.Context) (core.Export, error)
	ClearAllData(ctx context.Context) error
	StorageInfo(ctx context.Context) (core.StorageInfo, error)
}

// Waker is satisfied by *worker.ReminderWorker.
type Waker interface {
	Wake()
}

type Deps struct {
	Expenses  ExpenseAPI
	Todos     TodoAPI
	Data      DataAPI
	Reminders Waker
	// Hub is optional; without it /ws is not served.
	Hub    *Hub
	Logger *log.Logger
	Clock  clockwork.Clock
}

type Server struct {
	http.Server
	deps         Deps
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires the routes behind the middleware chain. The returned
// server is ready for ListenAndServe.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	deps.Logger = deps.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:    deps,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 60, Clock: deps.Clock}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/views/{view}", s.handleView)

	mux.HandleFunc("POST /api/todos", s.handleCreateTodo)
	mux.HandleFunc("GET /api/todos", s.handleListTodos)
	mux.HandleFunc("POST /api/todos/{id}/done", s.handleMarkDone)
	mux.HandleFunc("POST /api/todos/{id}/reschedule", s.handleReschedule)
	mux.HandleFunc("POST /api/reminders/check", s.handleReminderCheck)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("DELETE /api/data", s.handleClearData)
	mux.HandleFunc("GET /api/storage", s.handleStorage)

	if deps.Hub != nil {
		mux.Handle("GET /ws", deps.Hub)
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(extractClientIP, s.onRateLimit)(h)
	h = securityHeaders(h)
	h = accessLog(h)
	h = log.RequestIDMiddleware(func(r *http.Request) string { return r.Header.Get(requestIDHeader) })(h)
	h = requestID(h)
	h = log.Middleware(deps.Logger)(h)
	h = recoverPanic(h)

	s.Server = http.Server{Addr: addr, Handler: h}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, extractClientIP(r), log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
}

// Shutdown stops background work, closes websocket sessions and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.deps.Hub != nil {
			s.deps.Hub.Close()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}
