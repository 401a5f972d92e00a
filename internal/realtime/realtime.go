// Package realtime defines the change-feed contract between the store and the
// derived views. A notification says only that a table changed; consumers
// re-fetch instead of applying deltas.
package realtime

import (
	"context"
	"sync"
)

// Table names a watched collection.
type Table string

const (
	TablePonds            Table = "ponds"
	TableFeedingSchedules Table = "feeding_schedules"
	TableHealthRecords    Table = "health_records"
	TableWaterQualityLogs Table = "water_quality_logs"
	TableProfiles         Table = "profiles"
)

// Subscription is a live change-feed registration.
type Subscription interface {
	Close() error
}

// Notifier delivers payload-free change signals for a table.
type Notifier interface {
	Subscribe(ctx context.Context, table Table, onChange func()) (Subscription, error)
}

// Publisher announces that a table changed. Transports that observe the
// store directly (change streams) do not need one.
type Publisher interface {
	Publish(ctx context.Context, table Table) error
}

// NopPublisher discards announcements.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Table) error { return nil }

// Hub is an in-process Notifier and Publisher, used when every write goes
// through this service.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[Table]map[int]func()
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[Table]map[int]func())}
}

// Subscribe implements Notifier.
func (h *Hub) Subscribe(_ context.Context, table Table, onChange func()) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[table] == nil {
		h.subs[table] = make(map[int]func())
	}
	h.subs[table][id] = onChange

	return hubSubscription(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[table], id)
	}), nil
}

// Publish implements Publisher. Callbacks run on the caller's goroutine.
func (h *Hub) Publish(_ context.Context, table Table) error {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.subs[table]))
	for _, fn := range h.subs[table] {
		callbacks = append(callbacks, fn)
	}
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Subscribers counts live subscriptions on a table.
func (h *Hub) Subscribers(table Table) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[table])
}

type hubSubscription func()

func (s hubSubscription) Close() error {
	s()
	return nil
}
