package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campuswal/internal/core"
	"campuswal/internal/log"
	"campuswal/internal/search"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto the error taxonomy: validation 422, missing
// record 404, everything else 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Err.Error(), Field: verr.Field})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		log.LogError(r.Context(), "Request failed", err, op, nil)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return core.NewValidationError("body", err)
	}
	return nil
}

// parseFilter reads the search and filter query parameters.
func parseFilter(r *http.Request) (search.Filter, error) {
	q := r.URL.Query()
	window, err := core.ParseWindow(q.Get("filter"))
	if err != nil {
		return search.Filter{}, core.NewValidationError("filter", err)
	}
	return search.Filter{Query: stripControl(q.Get("search")), Window: window}, nil
}

func parseID(r *http.Request) (core.ID, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", errors.New("invalid id"))
	}
	return core.ID(id), nil
}

// stripControl drops control characters other than tab and newlines. The
// search text is otherwise kept as typed.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
