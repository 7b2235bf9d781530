package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"financas/internal/notify"
)

type MessageType string

const (
	TypeInvalidate   MessageType = "invalidate"
	TypeNotification MessageType = "notification"
)

// Event is the message exchanged between dashboard instances. Invalidate
// events carry Key; notification events carry Level, Title and Description.
type Event struct {
	Type        MessageType `json:"type"`
	Key         string      `json:"key,omitempty"`
	Level       string      `json:"level,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Origin      string      `json:"origin"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewInvalidateEvent creates an event telling other instances to drop key.
func NewInvalidateEvent(origin, key string) *Event {
	return &Event{
		Type:      TypeInvalidate,
		Key:       key,
		Origin:    origin,
		Timestamp: time.Now(),
	}
}

// NewNotificationEvent wraps a user-facing notification.
func NewNotificationEvent(origin string, n notify.Notification) *Event {
	return &Event{
		Type:        TypeNotification,
		Level:       string(n.Level),
		Title:       n.Title,
		Description: n.Description,
		Origin:      origin,
		Timestamp:   time.Now(),
	}
}

// Notification converts a notification event back to its payload.
func (m *Event) Notification() notify.Notification {
	return notify.Notification{
		Level:       notify.Level(m.Level),
		Title:       m.Title,
		Description: m.Description,
	}
}

// ToJSON converts the message to JSON bytes
func (m *Event) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventFromJSON decodes and checks a message.
func EventFromJSON(data []byte) (*Event, error) {
	var msg Event
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeInvalidate:
		if msg.Key == "" {
			return nil, fmt.Errorf("invalidate event without key")
		}
	case TypeNotification:
		if msg.Title == "" {
			return nil, fmt.Errorf("notification event without title")
		}
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
