package log

import (
	"errors"
	"time"

	"campuswal/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldBackend     = "backend"
	FieldItem        = "item"
	FieldAmountCents = "amount_cents"
	FieldTodoID      = "todo_id"
	FieldTitle       = "title"
	FieldWhen        = "when"
	FieldPriority    = "priority"
	FieldSearch      = "search"
	FieldWindow      = "window"
	FieldCount       = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentExpense   = "expense"
	ComponentTodo      = "todo"
	ComponentReminder  = "reminder"
	ComponentStorage   = "storage"
	ComponentBackend   = "backend"
	ComponentAMQP      = "amqp"
	ComponentTelegram  = "telegram"
	ComponentWorker    = "worker"
	ComponentWebsocket = "websocket"
	ComponentBackup    = "backup"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpList       = "list"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpSweep      = "sweep"
	OpFire       = "fire"
	OpExport     = "export"
	OpClear      = "clear"
	OpSearch     = "search"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
	OpPublish    = "publish"
	OpValidation = "validate"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeStorage       = "storage_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// ErrorTypeOf classifies err against the core error taxonomy.
func ErrorTypeOf(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrStorage):
		return ErrorTypeStorage
	default:
		return ErrorTypeInternal
	}
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message and its taxonomy class.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorTypeOf(err)
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithExpense(item string, amountCents int64) LogFields {
	f[FieldItem] = item
	f[FieldAmountCents] = amountCents
	return f
}

func (f LogFields) WithTodo(id core.ID, title string, when time.Time) LogFields {
	f[FieldTodoID] = int64(id)
	f[FieldTitle] = title
	f[FieldWhen] = when.Format(time.RFC3339)
	return f
}

func (f LogFields) WithFilter(query string, window core.Window) LogFields {
	f[FieldSearch] = query
	f[FieldWindow] = string(window)
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
