// Package notify carries user-facing feedback (toasts) from the form flow to
// whatever presents it.
package notify

import (
	"context"
	"sync"

	applog "financas/internal/log"
)

// Level is the severity of a notification. Values match the class names the
// dashboard uses for its toasts.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a short title with an optional longer description.
type Notification struct {
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Message joins title and description for single-line displays.
func (n Notification) Message() string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + ": " + n.Description
}

func Success(title, description string) Notification {
	return Notification{Level: LevelSuccess, Title: title, Description: description}
}

func Error(title, description string) Notification {
	return Notification{Level: LevelError, Title: title, Description: description}
}

func Warning(title, description string) Notification {
	return Notification{Level: LevelWarning, Title: title, Description: description}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Recorder keeps notifications until they are drained. HTTP handlers use
// one per request and turn its contents into response triggers.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Drain returns and clears the recorded notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	return out
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *applog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = applog.FromContext(ctx)
	}
	args := []any{"level", string(n.Level), "title", n.Title}
	if n.Description != "" {
		args = append(args, "description", n.Description)
	}
	switch n.Level {
	case LevelError:
		logger.WarnContext(ctx, "Notification", args...)
	default:
		logger.InfoContext(ctx, "Notification", args...)
	}
}

// Multi delivers to every member in order. Nil members are skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}
