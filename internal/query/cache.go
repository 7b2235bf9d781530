// Package query is a keyed, in-process cache of server collections. Each key
// moves through Idle -> Loading -> Success|Error; invalidating a key sends it
// back to Loading and refetches it in the background with the last fetcher
// used for that key.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	applog "financas/internal/log"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "idle"
}

// Event is delivered to subscribers on every state transition of a key.
type Event struct {
	Key        string
	Status     Status
	Generation uint64
}

// Options configures a Cache.
type Options struct {
	// StaleTime makes successful data older than this refetch on the next
	// read. Zero keeps data fresh until the key is invalidated.
	StaleTime time.Duration
	Logger    *applog.Logger
	// Now is used for UpdatedAt and staleness checks.
	Now func() time.Time
}

type fetchFunc func(ctx context.Context) (any, error)

type entry struct {
	status    Status
	data      any
	hasData   bool
	err       error
	gen       uint64 // bumped on every invalidation
	dataGen   uint64 // generation the current data was fetched for
	flight    uint64 // id of the latest fetch started for the key
	updatedAt time.Time
	fetcher   fetchFunc
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	subs    map[string]map[int]func(Event)
	nextSub int
	closed  bool

	group  singleflight.Group
	opts   Options
	logger *applog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// errSuperseded marks a fetch whose key was invalidated while it ran.
var errSuperseded = errors.New("query: fetch superseded by invalidation")

// ErrClosed is returned by Fetch after Close.
var ErrClosed = errors.New("query: cache closed")

func New(opts Options) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		entries: map[string]*entry{},
		subs:    map[string]map[int]func(Event){},
		opts:    opts,
		logger:  opts.Logger.WithComponent(applog.ComponentQuery),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Fetch returns the data cached under key, running fn when the key has no
// fresh data. Callers arriving while the key is loading share the running
// call instead of starting another. A result that arrives after the key was
// invalidated is discarded and the fetch is repeated for the new generation.
func Fetch[T any](ctx context.Context, c *Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query: value cached under %q is %T", key, v)
	}
	return out, nil
}

func (c *Cache) fetch(ctx context.Context, key string, fn fetchFunc) (any, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		e := c.entryLocked(key)
		e.fetcher = fn
		if e.status == StatusSuccess && e.dataGen == e.gen && !c.staleLocked(e) {
			data := e.data
			c.mu.Unlock()
			return data, nil
		}
		gen := e.gen
		var notify []func(Event)
		if e.status != StatusLoading {
			e.flight++
			e.status = StatusLoading
			notify = c.subscribersLocked(key)
		}
		flight := e.flight
		c.mu.Unlock()
		c.emit(notify, Event{Key: key, Status: StatusLoading, Generation: gen})

		ch := c.group.DoChan(flightKey(key, flight), func() (any, error) {
			return c.run(ctx, key, gen, flight, fn)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if errors.Is(res.Err, errSuperseded) {
				continue
			}
			return res.Val, res.Err
		}
	}
}

// run executes one flight for a generation and records its outcome unless
// the key moved on in the meantime. A flight that already settled is not
// run again; its recorded outcome is returned instead. The fetch keeps the
// caller's context values but is cancelled only by Close, so callers that
// give up early do not fail the other callers sharing it.
func (c *Cache) run(callerCtx context.Context, key string, gen, flight uint64, fn fetchFunc) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if e.gen != gen || e.flight != flight {
		c.mu.Unlock()
		return nil, errSuperseded
	}
	if e.status != StatusLoading {
		data, err := e.data, e.err
		c.mu.Unlock()
		return data, err
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.WithoutCancel(callerCtx))
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	start := c.opts.Now()
	v, err := fn(ctx)

	c.mu.Lock()
	e = c.entryLocked(key)
	if e.gen != gen {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "Discarding superseded fetch",
			applog.NewFields().WithQueryKey(key, gen).ToSlice()...)
		return nil, errSuperseded
	}
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.data = v
		e.hasData = true
		e.err = nil
		e.dataGen = gen
		e.updatedAt = c.opts.Now()
	}
	status := e.status
	notify := c.subscribersLocked(key)
	c.mu.Unlock()

	fields := applog.NewFields().WithQueryKey(key, gen).WithOperation(applog.OpFetch)
	fields[applog.FieldDuration] = c.opts.Now().Sub(start).Milliseconds()
	if err != nil {
		c.logger.WarnContext(ctx, "Query fetch failed", fields.WithError(err).ToSlice()...)
	} else {
		c.logger.DebugContext(ctx, "Query fetched", fields.ToSlice()...)
	}

	c.emit(notify, Event{Key: key, Status: status, Generation: gen})
	return v, err
}

// Invalidate marks key stale. A key that was fetched before goes back to
// Loading and is refetched in the background with its last fetcher; readers
// in the meantime wait for that refetch. Invalidating a key that was never
// fetched only bumps its generation.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e := c.entryLocked(key)
	e.gen++
	gen := e.gen
	fn := e.fetcher
	if fn == nil {
		c.mu.Unlock()
		return
	}
	e.flight++
	flight := e.flight
	e.status = StatusLoading
	notify := c.subscribersLocked(key)
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.DebugContext(c.ctx, "Query invalidated",
		applog.NewFields().WithQueryKey(key, gen).WithOperation(applog.OpInvalidate).ToSlice()...)
	c.emit(notify, Event{Key: key, Status: StatusLoading, Generation: gen})

	go func() {
		defer c.wg.Done()
		_, _, _ = c.group.Do(flightKey(key, flight), func() (any, error) {
			return c.run(c.ctx, key, gen, flight, fn)
		})
	}()
}

// Subscribe registers fn for state transitions of key. fn runs on the
// goroutine that caused the transition and must not block. The returned
// function removes the subscription.
func (c *Cache) Subscribe(key string, fn func(Event)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	if c.subs[key] == nil {
		c.subs[key] = map[int]func(Event){}
	}
	c.subs[key][id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[key], id)
	}
}

// Close cancels in-flight background refetches and waits for them.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// State is a point-in-time view of one key.
type State[T any] struct {
	Status     Status
	Data       T
	HasData    bool
	Err        error
	UpdatedAt  time.Time
	Generation uint64
}

func (s State[T]) IsLoading() bool { return s.Status == StatusLoading }
func (s State[T]) IsError() bool   { return s.Status == StatusError }

// Snapshot returns the current state of key without fetching. Data from a
// previous successful fetch is kept while the key reloads or after a failed
// refetch.
func Snapshot[T any](c *Cache, key string) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State[T]{Status: StatusIdle}
	}
	st := State[T]{
		Status:     e.status,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
		Generation: e.gen,
	}
	if e.hasData {
		if v, ok := e.data.(T); ok {
			st.Data = v
			st.HasData = true
		}
	}
	return st
}

func (c *Cache) entryLocked(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) staleLocked(e *entry) bool {
	return c.opts.StaleTime > 0 && c.opts.Now().Sub(e.updatedAt) > c.opts.StaleTime
}

func (c *Cache) subscribersLocked(key string) []func(Event) {
	subs := c.subs[key]
	if len(subs) == 0 {
		return nil
	}
	out := make([]func(Event), 0, len(subs))
	for _, fn := range subs {
		out = append(out, fn)
	}
	return out
}

func (c *Cache) emit(fns []func(Event), ev Event) {
	for _, fn := range fns {
		fn(ev)
	}
}

func flightKey(key string, flight uint64) string {
	return key + "#" + strconv.FormatUint(flight, 10)
}
