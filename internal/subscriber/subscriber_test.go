package subscriber_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/pondwatch/internal/realtime"
	"github.com/mamadbah2/pondwatch/internal/subscriber"
)

// manualLoop queues posted callbacks until the test runs them.
type manualLoop struct {
	posted chan func()
}

func newManualLoop() *manualLoop {
	return &manualLoop{posted: make(chan func(), 16)}
}

func (l *manualLoop) Post(fn func()) bool {
	l.posted <- fn
	return true
}

func (l *manualLoop) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("no callback was posted")
	}
}

// gatedFetch hands out one gate per call; a fetch returns when its gate is fed.
type gatedFetch struct {
	started chan int
	gates   []chan fetchOutcome
}

type fetchOutcome struct {
	records []string
	err     error
}

func newGatedFetch(calls int) *gatedFetch {
	g := &gatedFetch{started: make(chan int, calls)}
	for range calls {
		g.gates = append(g.gates, make(chan fetchOutcome, 1))
	}
	return g
}

func (g *gatedFetch) fetchFunc() subscriber.FetchFunc[string] {
	calls := make(chan int, len(g.gates))
	for i := range g.gates {
		calls <- i
	}
	return func(ctx context.Context) ([]string, error) {
		i := <-calls
		g.started <- i
		out := <-g.gates[i]
		return out.records, out.err
	}
}

func (g *gatedFetch) waitStarted(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case <-g.started:
		case <-time.After(2 * time.Second):
			t.Fatal("fetch was not started")
		}
	}
}

type recorder struct {
	applied []subscriber.Result[string]
}

func (r *recorder) apply(res subscriber.Result[string]) {
	r.applied = append(r.applied, res)
}

func (r *recorder) last() subscriber.Result[string] {
	return r.applied[len(r.applied)-1]
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	loop := newManualLoop()
	fetch := newGatedFetch(2)
	rec := &recorder{}

	coll := subscriber.New(subscriber.Config[string]{
		Table:    realtime.TablePonds,
		Fetch:    fetch.fetchFunc(),
		Notifier: hub,
		Loop:     loop,
		Apply:    rec.apply,
		Logger:   zaptest.NewLogger(t),
	})

	if coll.State() != subscriber.Idle {
		t.Fatalf("new collection should be idle, got %s", coll.State())
	}
	if err := coll.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := coll.Start(ctx); !errors.Is(err, subscriber.ErrAlreadyStarted) {
		t.Fatalf("second start: %v", err)
	}
	if coll.State() != subscriber.Subscribing {
		t.Fatalf("expected subscribing before the initial fetch resolves, got %s", coll.State())
	}

	fetch.waitStarted(t, 1)
	fetch.gates[0] <- fetchOutcome{records: []string{"a"}}
	loop.runNext(t)

	if coll.State() != subscriber.Active {
		t.Fatalf("expected active, got %s", coll.State())
	}
	select {
	case <-coll.Ready():
	default:
		t.Fatal("ready should be closed once active")
	}
	if got := rec.last(); got.Trigger != subscriber.TriggerInitial || !reflect.DeepEqual(got.Records, []string{"a"}) {
		t.Errorf("unexpected initial result: %+v", got)
	}

	if err := hub.Publish(ctx, realtime.TablePonds); err != nil {
		t.Fatal(err)
	}
	fetch.waitStarted(t, 1)
	fetch.gates[1] <- fetchOutcome{records: []string{"a", "b"}}
	loop.runNext(t)

	if got := rec.last(); got.Trigger != subscriber.TriggerNotification || len(got.Records) != 2 {
		t.Errorf("unexpected notification result: %+v", got)
	}

	coll.Stop()
	if coll.State() != subscriber.Unsubscribed {
		t.Fatalf("expected unsubscribed, got %s", coll.State())
	}
	if n := hub.Subscribers(realtime.TablePonds); n != 0 {
		t.Errorf("subscription should be torn down, %d left", n)
	}

	// Further notifications start no fetch.
	if err := hub.Publish(ctx, realtime.TablePonds); err != nil {
		t.Fatal(err)
	}
	select {
	case i := <-fetch.started:
		t.Fatalf("fetch %d started after unsubscribe", i)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailedInitialFetchStillActivates(t *testing.T) {
	loop := newManualLoop()
	fetch := newGatedFetch(1)
	rec := &recorder{}

	coll := subscriber.New(subscriber.Config[string]{
		Table:  realtime.TableHealthRecords,
		Fetch:  fetch.fetchFunc(),
		Loop:   loop,
		Apply:  rec.apply,
		Logger: zaptest.NewLogger(t),
	})
	if err := coll.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	fetch.waitStarted(t, 1)
	fetch.gates[0] <- fetchOutcome{err: errors.New("store unreachable")}
	loop.runNext(t)

	if coll.State() != subscriber.Active {
		t.Fatalf("failed initial fetch must still reach active, got %s", coll.State())
	}
	if rec.last().Err == nil {
		t.Error("the failure should be visible to the owner")
	}
}

// Two overlapping fetches: the older one resolving last overwrites the newer.
func TestLateOlderFetchWins(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub()
	loop := newManualLoop()
	fetch := newGatedFetch(3)
	rec := &recorder{}

	coll := subscriber.New(subscriber.Config[string]{
		Table:    realtime.TableFeedingSchedules,
		Fetch:    fetch.fetchFunc(),
		Notifier: hub,
		Loop:     loop,
		Apply:    rec.apply,
		Logger:   zaptest.NewLogger(t),
	})
	if err := coll.Start(ctx); err != nil {
		t.Fatal(err)
	}
	fetch.waitStarted(t, 1)
	fetch.gates[0] <- fetchOutcome{records: []string{"initial"}}
	loop.runNext(t)

	// Fetch A then fetch B, no coalescing.
	if err := hub.Publish(ctx, realtime.TableFeedingSchedules); err != nil {
		t.Fatal(err)
	}
	fetch.waitStarted(t, 1)
	if err := hub.Publish(ctx, realtime.TableFeedingSchedules); err != nil {
		t.Fatal(err)
	}
	fetch.waitStarted(t, 1)

	fetch.gates[2] <- fetchOutcome{records: []string{"B"}}
	loop.runNext(t)
	fetch.gates[1] <- fetchOutcome{records: []string{"A"}}
	loop.runNext(t)

	final := rec.last()
	if !reflect.DeepEqual(final.Records, []string{"A"}) {
		t.Fatalf("expected the late stale result to be held, got %v", final.Records)
	}
	if !final.Stale || final.Seq != 2 {
		t.Errorf("stale result should be flagged with its initiation order: %+v", final)
	}
	if rec.applied[len(rec.applied)-2].Stale {
		t.Error("the newer result was not stale when applied")
	}
}

func TestResultAfterStopIsDropped(t *testing.T) {
	loop := newManualLoop()
	fetch := newGatedFetch(1)
	rec := &recorder{}

	coll := subscriber.New(subscriber.Config[string]{
		Table:  realtime.TableWaterQualityLogs,
		Fetch:  fetch.fetchFunc(),
		Loop:   loop,
		Apply:  rec.apply,
		Logger: zaptest.NewLogger(t),
	})
	if err := coll.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	fetch.waitStarted(t, 1)

	coll.Stop()
	fetch.gates[0] <- fetchOutcome{records: []string{"late"}}
	loop.runNext(t)

	if len(rec.applied) != 0 {
		t.Errorf("no result should be applied after unsubscribe: %+v", rec.applied)
	}
}

type failingNotifier struct{}

func (failingNotifier) Subscribe(context.Context, realtime.Table, func()) (realtime.Subscription, error) {
	return nil, errors.New("change streams need a replica set")
}

func TestPollingFallback(t *testing.T) {
	loop := subscriber.NewLoop(8)
	go loop.Run()
	defer loop.Close()

	polled := make(chan subscriber.Trigger, 8)
	coll := subscriber.New(subscriber.Config[string]{
		Table:    realtime.TablePonds,
		Fetch:    func(context.Context) ([]string, error) { return []string{"x"}, nil },
		Notifier: failingNotifier{},
		Interval: time.Second,
		Loop:     loop,
		Apply:    func(r subscriber.Result[string]) { polled <- r.Trigger },
		// Fetches may still finish after the test returns.
		Logger:   zap.NewNop(),
	})
	if err := coll.Start(context.Background()); err != nil {
		t.Fatalf("a failed subscription must not fail start: %v", err)
	}
	defer coll.Stop()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case trigger := <-polled:
			if trigger == subscriber.TriggerPoll {
				return
			}
		case <-deadline:
			t.Fatal("no poll fetch happened")
		}
	}
}

func TestLoop(t *testing.T) {
	loop := subscriber.NewLoop(4)
	go loop.Run()

	ran := make(chan int, 3)
	for i := range 3 {
		if !loop.Post(func() { ran <- i }) {
			t.Fatal("post on a running loop failed")
		}
	}
	for want := range 3 {
		if got := <-ran; got != want {
			t.Fatalf("callbacks out of order: got %d, want %d", got, want)
		}
	}

	loop.Close()
	if loop.Post(func() {}) {
		t.Error("post after close should report false")
	}
}
