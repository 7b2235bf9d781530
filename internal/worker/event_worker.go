// Package worker runs the background side of a dashboard instance: applying
// events from other instances and periodically resyncing the query cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"financas/internal/amqp"
	applog "financas/internal/log"
	"financas/internal/query"
)

// Consumer delivers bus events until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, handler func(*amqp.Event) error) error
}

// Cache is the local query cache the worker invalidates and watches.
type Cache interface {
	query.Invalidator
	Subscribe(key string, fn func(query.Event)) (cancel func())
}

// EventWorker feeds bus events to a handler and, every interval, invalidates
// all collection keys so data changed by an instance whose events were lost
// is picked up anyway. While running it reports background refetches that
// fail.
type EventWorker struct {
	consumer Consumer
	handler  func(*amqp.Event) error
	local    Cache
	interval time.Duration
	logger   *applog.Logger

	refetchFailures atomic.Int64
}

func NewEventWorker(consumer Consumer, handler func(*amqp.Event) error, local Cache, interval time.Duration, logger *applog.Logger) *EventWorker {
	if logger == nil {
		logger = applog.Nop()
	}
	return &EventWorker{
		consumer: consumer,
		handler:  handler,
		local:    local,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentAMQP),
	}
}

// HandleEvent applies one event and logs the outcome.
func (w *EventWorker) HandleEvent(ev *amqp.Event) error {
	if err := w.handler(ev); err != nil {
		w.logger.Warn("Failed to apply event",
			applog.FieldError, err.Error(),
			"type", string(ev.Type),
			applog.FieldOrigin, ev.Origin)
		return fmt.Errorf("apply %s event: %w", ev.Type, err)
	}
	return nil
}

// Resync invalidates every collection key.
func (w *EventWorker) Resync(ctx context.Context) {
	for _, key := range query.AllKeys {
		w.local.Invalidate(key)
	}
	w.logger.DebugContext(ctx, "Periodic resync", "keys", len(query.AllKeys))
}

// RefetchFailures is the number of failed refetches seen while running.
func (w *EventWorker) RefetchFailures() int64 {
	return w.refetchFailures.Load()
}

// watch subscribes to every collection key and returns the function that
// removes the subscriptions.
func (w *EventWorker) watch() func() {
	cancels := make([]func(), 0, len(query.AllKeys))
	for _, key := range query.AllKeys {
		cancels = append(cancels, w.local.Subscribe(key, w.observe))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func (w *EventWorker) observe(ev query.Event) {
	if ev.Status != query.StatusError {
		return
	}
	w.refetchFailures.Add(1)
	w.logger.Warn("Collection refetch failed",
		applog.NewFields().WithQueryKey(ev.Key, ev.Generation).ToSlice()...)
}

// Run blocks until ctx is done or the consumer gives up. A cancelled context
// is a clean stop and returns nil.
func (w *EventWorker) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unwatch := w.watch()
	defer unwatch()

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- w.consumer.Consume(ctx, w.HandleEvent)
	}()

	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.logger.InfoContext(ctx, "Event worker started", "resync_interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			<-consumeErr
			w.logger.Info("Event worker stopped")
			return nil
		case err := <-consumeErr:
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("consume events: %w", err)
		case <-tick:
			w.Resync(ctx)
		}
	}
}
