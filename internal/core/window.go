package core

import (
	"errors"
	"fmt"
	"strings"
)

// Window is one of the fixed reporting periods. WindowAll disables time
// filtering.
type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

var ErrInvalidWindow = errors.New("invalid time filter")

// Windows returns the four reporting periods in display order.
func Windows() []Window {
	return []Window{WindowToday, WindowWeek, WindowMonth, WindowYear}
}

// ParseWindow accepts the known window names; empty means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowToday, WindowWeek, WindowMonth, WindowYear:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
}

func (w Window) String() string { return string(w) }
