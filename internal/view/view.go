// Package view holds the derived state of each mounted screen. A View owns one
// subscriber.Collection per watched table, keeps the raw collections on a
// single event loop and rebuilds its Snapshot from scratch after every
// applied fetch.
package view

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/instrumentation"
	"github.com/mamadbah2/pondwatch/internal/realtime"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/subscriber"
)

const loopBuffer = 64

// Options are shared by every view of a registry.
type Options struct {
	Store    repository.Reader
	Notifier realtime.Notifier
	// Intervals is the polling period per kind; a missing kind does not poll.
	Intervals map[Kind]time.Duration
	Prices    aggregate.Prices
	Location  *time.Location
	Now       func() time.Time
	Logger    *zap.Logger
	Metrics   *instrumentation.Metrics
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Prices == (aggregate.Prices{}) {
		o.Prices = aggregate.DefaultPrices
	}
	return o
}

type collection interface {
	Start(ctx context.Context) error
	Stop()
	Refetch()
	Ready() <-chan struct{}
}

// View is one mounted (user, kind) pair.
type View struct {
	kind    Kind
	session models.Session
	scope   repository.Scope
	opts    Options
	logger  *zap.Logger

	loop        *subscriber.Loop
	collections []collection

	// loop-owned
	raw     raw
	version uint64

	snapshot atomic.Pointer[Snapshot]
	lastUsed atomic.Int64

	mu       sync.Mutex
	watchers map[chan *Snapshot]struct{}
	closed   bool
}

func newView(kind Kind, session models.Session, opts Options) *View {
	scope := repository.Scope{UserID: session.UserID}
	if kind == KindAdmin {
		scope.All = true
	}

	v := &View{
		kind:     kind,
		session:  session,
		scope:    scope,
		opts:     opts,
		logger:   opts.Logger.With(zap.String("view", string(kind)), zap.String("user_id", session.UserID)),
		loop:     subscriber.NewLoop(loopBuffer),
		raw:      raw{errors: make(map[realtime.Table]string)},
		watchers: make(map[chan *Snapshot]struct{}),
	}
	v.snapshot.Store(compute(&v.raw, v.params()))
	v.touch()

	for _, table := range kind.Tables() {
		v.collections = append(v.collections, v.collectionFor(table))
	}
	return v
}

func (v *View) collectionFor(table realtime.Table) collection {
	store := v.opts.Store
	switch table {
	case realtime.TablePonds:
		return watch(v, table, func(ctx context.Context) ([]models.Pond, error) {
			return store.ListPonds(ctx, v.scope)
		}, func(r *raw, rows []models.Pond) { r.ponds = rows })
	case realtime.TableFeedingSchedules:
		return watch(v, table, func(ctx context.Context) ([]models.FeedingSchedule, error) {
			return store.ListFeedingSchedules(ctx, v.scope)
		}, func(r *raw, rows []models.FeedingSchedule) { r.schedules = rows })
	case realtime.TableHealthRecords:
		return watch(v, table, func(ctx context.Context) ([]models.HealthRecord, error) {
			return store.ListHealthRecords(ctx, v.scope)
		}, func(r *raw, rows []models.HealthRecord) { r.health = rows })
	default:
		return watch(v, table, func(ctx context.Context) ([]models.WaterQualityLog, error) {
			return store.ListWaterQualityLogs(ctx, v.scope)
		}, func(r *raw, rows []models.WaterQualityLog) { r.water = rows })
	}
}

// watch builds the collection for one table. A failed fetch keeps the
// last-known rows and records the error on the snapshot.
func watch[T any](v *View, table realtime.Table, fetch subscriber.FetchFunc[T], assign func(*raw, []T)) collection {
	return subscriber.New(subscriber.Config[T]{
		Table:    table,
		Fetch:    fetch,
		Notifier: v.opts.Notifier,
		Interval: v.opts.Intervals[v.kind],
		Loop:     v.loop,
		Apply: func(res subscriber.Result[T]) {
			if res.Err != nil {
				v.raw.errors[table] = res.Err.Error()
			} else {
				delete(v.raw.errors, table)
				assign(&v.raw, res.Records)
			}
			v.recompute()
		},
		Logger:  v.logger,
		Metrics: v.opts.Metrics,
	})
}

func (v *View) start(ctx context.Context) error {
	go v.loop.Run()
	for _, c := range v.collections {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	v.opts.Metrics.ViewMounted(string(v.kind), 1)
	v.logger.Info("view mounted", zap.Int("collections", len(v.collections)))
	return nil
}

func (v *View) params() computeParams {
	return computeParams{
		kind:     v.kind,
		userID:   v.session.UserID,
		version:  v.version,
		now:      v.opts.Now(),
		location: v.opts.Location,
		prices:   v.opts.Prices,
	}
}

// recompute runs on the loop.
func (v *View) recompute() {
	began := time.Now()
	v.version++
	snap := compute(&v.raw, v.params())
	v.snapshot.Store(snap)
	v.opts.Metrics.RecordRecompute(float64(time.Since(began).Microseconds()) / 1000)
	v.broadcast(snap)
}

func (v *View) broadcast(snap *Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for ch := range v.watchers {
		// Keep only the newest snapshot for a slow reader.
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Kind returns the view kind.
func (v *View) Kind() Kind { return v.kind }

// Snapshot returns the current derived state. It is safe for concurrent use.
func (v *View) Snapshot() *Snapshot {
	v.touch()
	return v.snapshot.Load()
}

// WaitReady blocks until every collection has delivered its initial fetch.
func (v *View) WaitReady(ctx context.Context) error {
	for _, c := range v.collections {
		select {
		case <-c.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Refresh re-fetches every collection out of band.
func (v *View) Refresh() {
	v.touch()
	for _, c := range v.collections {
		c.Refetch()
	}
}

// Watch streams snapshots as they are recomputed. The channel is closed when
// the view closes; call cancel to stop watching earlier.
func (v *View) Watch() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		close(ch)
		return ch, func() {}
	}
	v.watchers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if _, ok := v.watchers[ch]; ok {
				delete(v.watchers, ch)
				close(ch)
			}
			v.touch()
		})
	}
}

func (v *View) watching() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watchers)
}

func (v *View) touch() {
	v.lastUsed.Store(time.Now().UnixNano())
}

func (v *View) idleSince() time.Time {
	return time.Unix(0, v.lastUsed.Load())
}

// Close unmounts the view: polling and change feeds stop, in-flight fetches
// are left to finish and their results dropped.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	for ch := range v.watchers {
		delete(v.watchers, ch)
		close(ch)
	}
	v.mu.Unlock()

	for _, c := range v.collections {
		c.Stop()
	}
	v.loop.Close()
	v.opts.Metrics.ViewMounted(string(v.kind), -1)
	v.logger.Info("view unmounted")
}
