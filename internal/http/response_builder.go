// Package http serves the dashboard.
//
// This file implements the Builder Pattern for constructing HTMX responses.
// It provides a fluent API for building HX-Trigger headers and consistent
// response formatting.

package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"financas/internal/notify"
)

// HTMXResponseBuilder collects HX-Trigger events, headers and a body.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	order      []string
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event with data to the HX-Trigger header. A later
// call with the same name replaces the data.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	if _, ok := b.triggers[name]; !ok {
		b.order = append(b.order, name)
	}
	b.triggers[name] = data
	return b
}

// TriggerListChanged fires "<key>:changed" so list partials bound to that
// event reload from the server.
func (b *HTMXResponseBuilder) TriggerListChanged(key string) *HTMXResponseBuilder {
	return b.Trigger(key+":changed", struct{}{})
}

// TriggerFormReset adds the form:reset trigger.
func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// Display durations per notification level, in milliseconds.
var notificationDurations = map[notify.Level]int{
	notify.LevelSuccess: 3000,
	notify.LevelInfo:    3000,
	notify.LevelWarning: 4000,
	notify.LevelError:   5000,
}

// TriggerNotification adds a show-notification trigger. Only one
// notification fits in the header, so the last one wins.
func (b *HTMXResponseBuilder) TriggerNotification(n notify.Notification) *HTMXResponseBuilder {
	duration, ok := notificationDurations[n.Level]
	if !ok {
		duration = 3000
	}
	return b.Trigger("show-notification", map[string]any{
		"type":        string(n.Level),
		"title":       n.Title,
		"description": n.Description,
		"message":     n.Message(),
		"duration":    duration,
	})
}

// Notifications triggers the most severe of ns, if any.
func (b *HTMXResponseBuilder) Notifications(ns []notify.Notification) *HTMXResponseBuilder {
	if len(ns) == 0 {
		return b
	}
	pick := ns[0]
	for _, n := range ns[1:] {
		if severity(n.Level) >= severity(pick.Level) {
			pick = n
		}
	}
	return b.TriggerNotification(pick)
}

func severity(l notify.Level) int {
	switch l {
	case notify.LevelError:
		return 3
	case notify.LevelWarning:
		return 2
	case notify.LevelSuccess:
		return 1
	}
	return 0
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html []byte) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = html
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if header, err := b.triggerHeader(); err == nil {
			w.Header().Set("HX-Trigger", header)
		}
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// triggerHeader encodes the events in insertion order.
func (b *HTMXResponseBuilder) triggerHeader() (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return "", err
		}
		v, err := json.Marshal(b.triggers[name])
		if err != nil {
			return "", err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// ErrorResponse creates an error response with an escaped message.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML([]byte(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
