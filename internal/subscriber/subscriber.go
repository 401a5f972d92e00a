// Package subscriber keeps one collection of a view fresh. A Collection does
// an initial fetch, re-fetches the whole collection on every change
// notification, and re-fetches again on a fixed polling interval in case a
// notification was missed. Fetch results are handed to the owning view's
// event loop; whichever result is delivered last wins.
package subscriber

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/instrumentation"
	"github.com/mamadbah2/pondwatch/internal/realtime"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("collection already started")

// State is the lifecycle position of a Collection.
type State int32

const (
	Idle State = iota
	Subscribing
	Active
	Unsubscribed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribing:
		return "subscribing"
	case Active:
		return "active"
	case Unsubscribed:
		return "unsubscribed"
	default:
		return "unknown"
	}
}

// Trigger records why a fetch was issued.
type Trigger string

const (
	TriggerInitial      Trigger = "initial"
	TriggerNotification Trigger = "notification"
	TriggerPoll         Trigger = "poll"
	TriggerManual       Trigger = "manual"
)

// Poster runs callbacks on the owner's single execution context. Post
// reports false when the owner is gone and fn will never run.
type Poster interface {
	Post(fn func()) bool
}

// FetchFunc loads the full, current collection.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Result is one completed fetch as delivered to the owner.
type Result[T any] struct {
	// Seq is the initiation order of the fetch, starting at 1.
	Seq     uint64
	Trigger Trigger
	Records []T
	Err     error
	// Stale is set when a fetch initiated later has already been applied.
	Stale bool
}

// Config wires a Collection.
type Config[T any] struct {
	Table realtime.Table
	Fetch FetchFunc[T]
	// Notifier may be nil; the collection then relies on polling alone.
	Notifier realtime.Notifier
	// Interval is the polling period. Zero disables polling.
	Interval time.Duration
	Loop     Poster
	// Apply runs on Loop for every delivered result, failed fetches included.
	Apply   func(Result[T])
	Logger  *zap.Logger
	Metrics *instrumentation.Metrics
}

// Collection is the subscription handle for one table of one view.
type Collection[T any] struct {
	cfg    Config[T]
	logger *zap.Logger

	state atomic.Int32
	seq   atomic.Uint64
	ready chan struct{}

	// fetchCtx outlives Stop: in-flight fetches are left to finish.
	fetchCtx context.Context

	mu   sync.Mutex
	sub  realtime.Subscription
	cron *cron.Cron

	// loop-owned
	highestApplied uint64
}

// New builds an idle Collection.
func New[T any](cfg Config[T]) *Collection[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{
		cfg:    cfg,
		logger: logger.With(zap.String("table", string(cfg.Table))),
		ready:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Collection[T]) State() State {
	return State(c.state.Load())
}

// Ready is closed once the initial fetch has been delivered.
func (c *Collection[T]) Ready() <-chan struct{} {
	return c.ready
}

// Start issues the initial fetch, subscribes to change notifications and
// starts the polling timer. A failed subscription is logged and the
// collection continues on polling alone.
func (c *Collection[T]) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Idle), int32(Subscribing)) {
		return ErrAlreadyStarted
	}
	c.fetchCtx = context.WithoutCancel(ctx)

	c.refetch(TriggerInitial)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Notifier != nil {
		sub, err := c.cfg.Notifier.Subscribe(ctx, c.cfg.Table, c.onNotification)
		if err != nil {
			c.logger.Warn("change feed unavailable, polling only", zap.Error(err))
		} else {
			c.sub = sub
		}
	}

	if c.cfg.Interval > 0 {
		c.cron = cron.New()
		c.cron.Schedule(cron.Every(c.cfg.Interval), cron.FuncJob(func() {
			c.refetch(TriggerPoll)
		}))
		c.cron.Start()
	}

	c.logger.Debug("collection subscribed", zap.Duration("poll_interval", c.cfg.Interval))
	return nil
}

// Refetch issues an out-of-band fetch, e.g. right after a local write.
func (c *Collection[T]) Refetch() {
	c.refetch(TriggerManual)
}

// Stop cancels the polling timer and the change feed. Fetches already in
// flight are not cancelled; their results are dropped when they arrive.
func (c *Collection[T]) Stop() {
	if State(c.state.Swap(int32(Unsubscribed))) == Unsubscribed {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			c.logger.Warn("failed to close change feed", zap.Error(err))
		}
		c.sub = nil
	}
	c.logger.Debug("collection unsubscribed")
}

func (c *Collection[T]) onNotification() {
	if c.State() == Unsubscribed {
		return
	}
	c.cfg.Metrics.RecordNotification(string(c.cfg.Table))
	c.refetch(TriggerNotification)
}

// refetch never coalesces: every call starts its own fetch.
func (c *Collection[T]) refetch(trigger Trigger) {
	if c.State() == Unsubscribed {
		return
	}
	seq := c.seq.Add(1)

	go func() {
		records, err := c.cfg.Fetch(c.fetchCtx)
		c.cfg.Metrics.RecordFetch(string(c.cfg.Table), string(trigger), err)

		result := Result[T]{Seq: seq, Trigger: trigger, Records: records, Err: err}
		if !c.cfg.Loop.Post(func() { c.deliver(result) }) {
			c.logger.Debug("fetch result discarded, owner gone", zap.Uint64("seq", seq))
		}
	}()
}

func (c *Collection[T]) deliver(result Result[T]) {
	if c.State() == Unsubscribed {
		c.logger.Debug("fetch result discarded after unsubscribe", zap.Uint64("seq", result.Seq))
		return
	}

	if result.Seq < c.highestApplied {
		result.Stale = true
		c.cfg.Metrics.RecordStaleApplied(string(c.cfg.Table))
		c.logger.Debug("applying fetch older than current data",
			zap.Uint64("seq", result.Seq),
			zap.Uint64("newest_applied", c.highestApplied))
	} else {
		c.highestApplied = result.Seq
	}

	if result.Err != nil {
		c.logger.Warn("collection fetch failed, keeping last known data",
			zap.String("trigger", string(result.Trigger)),
			zap.Error(result.Err))
	}

	if c.cfg.Apply != nil {
		c.cfg.Apply(result)
	}

	if result.Trigger == TriggerInitial && c.state.CompareAndSwap(int32(Subscribing), int32(Active)) {
		close(c.ready)
	}
}

// Loop is a single-goroutine executor: everything posted to it runs in order,
// one at a time.
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

// NewLoop creates a loop; call Run to start it.
func NewLoop(buffer int) *Loop {
	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
	}
}

// Run executes posted callbacks until Close.
func (l *Loop) Run() {
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.events:
			select {
			case <-l.done:
				return
			default:
			}
			fn()
		}
	}
}

// Post implements Poster.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.events <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop; queued callbacks are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
