package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

type viewKey struct {
	userID string
	kind   Kind
}

// mount is a registry entry. done closes once the view has started or
// failed to; v is usable only when err is nil.
type mount struct {
	v    *View
	done chan struct{}
	err  error
}

func (m *mount) started() bool {
	select {
	case <-m.done:
		return m.err == nil
	default:
		return false
	}
}

// Registry mounts at most one View per (user, kind) and unmounts views that
// nobody has read for IdleTimeout.
type Registry struct {
	opts        Options
	idleTimeout time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	views  map[viewKey]*mount
	closed bool
}

// NewRegistry creates an empty registry. A zero idleTimeout keeps views
// mounted until Close.
func NewRegistry(opts Options, idleTimeout time.Duration) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		opts:        opts,
		idleTimeout: idleTimeout,
		logger:      opts.Logger.Named("views"),
		views:       make(map[viewKey]*mount),
	}
}

// Acquire returns the session's view of kind, mounting it on first use.
// Subscribing happens outside the registry lock; concurrent callers for the
// same view wait for the first one to finish.
func (r *Registry) Acquire(ctx context.Context, session models.Session, kind Kind) (*View, error) {
	if !kind.Allowed(session) {
		return nil, fmt.Errorf("%s: %w", kind, ErrForbidden)
	}

	key := viewKey{userID: session.UserID, kind: kind}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	if m, ok := r.views[key]; ok {
		r.mu.Unlock()
		return r.await(ctx, m)
	}

	opts := r.opts
	opts.Logger = r.logger
	m := &mount{v: newView(kind, session, opts), done: make(chan struct{})}
	r.views[key] = m
	r.mu.Unlock()

	// The view outlives the request that mounted it.
	err := m.v.start(context.WithoutCancel(ctx))

	r.mu.Lock()
	switch {
	case err != nil:
		m.err = fmt.Errorf("mount %s view: %w", kind, err)
		if r.views[key] == m {
			delete(r.views, key)
		}
	case r.views[key] != m:
		// Closed while starting.
		m.err = ErrClosed
	}
	close(m.done)
	r.mu.Unlock()

	if m.err != nil {
		m.v.Close()
		return nil, m.err
	}
	return m.v, nil
}

func (r *Registry) await(ctx context.Context, m *mount) (*View, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	m.v.touch()
	return m.v, nil
}

// Len counts mounted views, including ones still starting.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Sweep unmounts views idle since before now minus the idle timeout. Views
// with an open stream or still starting are never idle.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*View
	for key, m := range r.views {
		if m.started() && m.v.watching() == 0 && m.v.idleSince().Before(cutoff) {
			idle = append(idle, m.v)
			delete(r.views, key)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		v.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("unmounted idle views", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Close unmounts every view. Views still starting are closed by their
// Acquire call.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	views := r.views
	r.views = make(map[viewKey]*mount)
	r.mu.Unlock()

	for _, m := range views {
		if m.started() {
			m.v.Close()
		}
	}
}
