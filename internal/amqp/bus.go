package amqp

import (
	"context"
	"fmt"
	"time"

	applog "financas/internal/log"
	"financas/internal/notify"
	"financas/internal/query"
)

// Publisher is satisfied by *Client.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

// Bus forwards local invalidations and notifications to other instances and
// applies theirs locally. It implements query.Invalidator and
// notify.Notifier so it can sit next to the local cache and recorder.
type Bus struct {
	pub    Publisher
	origin string
	logger *applog.Logger
}

func NewBus(pub Publisher, origin string, logger *applog.Logger) *Bus {
	if logger == nil {
		logger = applog.Nop()
	}
	return &Bus{pub: pub, origin: origin, logger: logger.WithComponent(applog.ComponentAMQP)}
}

// Invalidate publishes an invalidate event. Publishing is best effort: a
// failure is logged and the local cache is unaffected.
func (b *Bus) Invalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.pub.Publish(ctx, NewInvalidateEvent(b.origin, key)); err != nil {
		b.logger.WarnContext(ctx, "Failed to broadcast invalidation",
			applog.FieldKey, key,
			applog.FieldError, err.Error())
	}
}

// Notify publishes a notification event.
func (b *Bus) Notify(ctx context.Context, n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.pub.Publish(ctx, NewNotificationEvent(b.origin, n)); err != nil {
		b.logger.WarnContext(ctx, "Failed to broadcast notification",
			"title", n.Title,
			applog.FieldError, err.Error())
	}
}

// Handler returns the consumer callback: events from other origins are
// applied to local and, for notifications, n. Own events are skipped.
func (b *Bus) Handler(local query.Invalidator, n notify.Notifier) func(*Event) error {
	return func(ev *Event) error {
		if ev.Origin == b.origin {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		switch ev.Type {
		case TypeInvalidate:
			b.logger.DebugContext(ctx, "Applying remote invalidation",
				applog.FieldKey, ev.Key,
				applog.FieldOrigin, ev.Origin)
			local.Invalidate(ev.Key)
		case TypeNotification:
			if n != nil {
				n.Notify(ctx, ev.Notification())
			}
		default:
			return fmt.Errorf("unknown event type %q", ev.Type)
		}
		return nil
	}
}
