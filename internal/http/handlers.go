package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/services"
)

const readyTimeout = 5 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the storage backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	info, err := s.deps.Data.StorageInfo(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "storage": info})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	res, err := s.deps.Expenses.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	res, err := s.deps.Expenses.List(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	sum, err := s.deps.Expenses.Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	window, err := core.ParseWindow(r.PathValue("view"))
	if err != nil {
		writeError(w, r, log.OpList, core.NewValidationError("view", err))
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	v, err := s.deps.Expenses.View(r.Context(), window, f)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var in services.TodoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	res, err := s.deps.Todos.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.deps.Todos.List(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	if todos == nil {
		todos = []core.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.deps.Todos.MarkDone(r.Context(), id); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, core.SaveResult{Success: true, ID: id})
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.deps.Todos.Reschedule(r.Context(), id, req.Date, req.Time); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, core.SaveResult{Success: true, ID: id})
}

// handleReminderCheck asks the worker for an immediate check, the way the
// app regaining focus does.
func (s *Server) handleReminderCheck(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reminders != nil {
		s.deps.Reminders.Wake()
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := s.deps.Data.ExportData(r.Context())
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="campuswal-backup-%s.json"`, exp.ExportDate.Format("2006-01-02")))
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) handleClearData(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Data.ClearAllData(r.Context()); err != nil {
		writeError(w, r, log.OpClear, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": core.Categories()})
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Data.StorageInfo(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
