// Package memory is an in-process repository.Store for tests and local runs
// without MongoDB.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
)

// Store keeps every collection in insertion order.
type Store struct {
	mu        sync.RWMutex
	ponds     []models.Pond
	schedules []models.FeedingSchedule
	health    []models.HealthRecord
	water     []models.WaterQualityLog
	profiles  []models.Profile
	reports   []models.DailyReport
	failReads error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// FailReads makes every List call return err; nil restores normal reads.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = err
}

func (s *Store) ownedPonds(scope repository.Scope) map[string]bool {
	owned := make(map[string]bool)
	for _, p := range s.ponds {
		if scope.All || p.UserID == scope.UserID {
			owned[p.ID] = true
		}
	}
	return owned
}

func (s *Store) ListPonds(_ context.Context, scope repository.Scope) ([]models.Pond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	out := []models.Pond{}
	for _, p := range s.ponds {
		if scope.All || p.UserID == scope.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListFeedingSchedules(_ context.Context, scope repository.Scope) ([]models.FeedingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	return filterByPond(s.schedules, s.ownedPonds(scope), func(f models.FeedingSchedule) string { return f.PondID }), nil
}

func (s *Store) ListHealthRecords(_ context.Context, scope repository.Scope) ([]models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	return filterByPond(s.health, s.ownedPonds(scope), func(h models.HealthRecord) string { return h.PondID }), nil
}

func (s *Store) ListWaterQualityLogs(_ context.Context, scope repository.Scope) ([]models.WaterQualityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failReads != nil {
		return nil, s.failReads
	}
	return filterByPond(s.water, s.ownedPonds(scope), func(w models.WaterQualityLog) string { return w.PondID }), nil
}

func filterByPond[T any](items []T, owned map[string]bool, pondID func(T) string) []T {
	out := []T{}
	for _, it := range items {
		if owned[pondID(it)] {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) GetPond(_ context.Context, id string) (models.Pond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.ponds, func(p models.Pond) bool { return p.ID == id })
	if i < 0 {
		return models.Pond{}, fmt.Errorf("pond %s: %w", id, repository.ErrNotFound)
	}
	return s.ponds[i], nil
}

func (s *Store) InsertPond(_ context.Context, pond models.Pond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ponds = append(s.ponds, pond)
	return nil
}

func (s *Store) UpdatePond(_ context.Context, pond models.Pond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.ponds, func(p models.Pond) bool { return p.ID == pond.ID })
	if i < 0 {
		return fmt.Errorf("pond %s: %w", pond.ID, repository.ErrNotFound)
	}
	s.ponds[i] = pond
	return nil
}

func (s *Store) DeletePond(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.ponds)
	s.ponds = slices.DeleteFunc(s.ponds, func(p models.Pond) bool { return p.ID == id })
	if len(s.ponds) == n {
		return fmt.Errorf("pond %s: %w", id, repository.ErrNotFound)
	}
	s.schedules = slices.DeleteFunc(s.schedules, func(f models.FeedingSchedule) bool { return f.PondID == id })
	s.health = slices.DeleteFunc(s.health, func(h models.HealthRecord) bool { return h.PondID == id })
	s.water = slices.DeleteFunc(s.water, func(w models.WaterQualityLog) bool { return w.PondID == id })
	return nil
}

func (s *Store) GetFeedingSchedule(_ context.Context, id string) (models.FeedingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.schedules, func(f models.FeedingSchedule) bool { return f.ID == id })
	if i < 0 {
		return models.FeedingSchedule{}, fmt.Errorf("feeding schedule %s: %w", id, repository.ErrNotFound)
	}
	return s.schedules[i], nil
}

func (s *Store) InsertFeedingSchedule(_ context.Context, schedule models.FeedingSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules = append(s.schedules, schedule)
	return nil
}

func (s *Store) UpdateFeedingStatus(_ context.Context, id string, status models.FeedingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.schedules, func(f models.FeedingSchedule) bool { return f.ID == id })
	if i < 0 {
		return fmt.Errorf("feeding schedule %s: %w", id, repository.ErrNotFound)
	}
	s.schedules[i].Status = status
	return nil
}

func (s *Store) DeleteFeedingSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.schedules)
	s.schedules = slices.DeleteFunc(s.schedules, func(f models.FeedingSchedule) bool { return f.ID == id })
	if len(s.schedules) == n {
		return fmt.Errorf("feeding schedule %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) GetHealthRecord(_ context.Context, id string) (models.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.health, func(h models.HealthRecord) bool { return h.ID == id })
	if i < 0 {
		return models.HealthRecord{}, fmt.Errorf("health record %s: %w", id, repository.ErrNotFound)
	}
	return s.health[i], nil
}

func (s *Store) InsertHealthRecord(_ context.Context, record models.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = append(s.health, record)
	return nil
}

func (s *Store) DeleteHealthRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.health)
	s.health = slices.DeleteFunc(s.health, func(h models.HealthRecord) bool { return h.ID == id })
	if len(s.health) == n {
		return fmt.Errorf("health record %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertWaterQualityLog(_ context.Context, log models.WaterQualityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.water = append(s.water, log)
	return nil
}

// PutProfile adds or replaces a profile.
func (s *Store) PutProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(s.profiles, func(q models.Profile) bool { return q.ID == p.ID }); i >= 0 {
		s.profiles[i] = p
		return
	}
	s.profiles = append(s.profiles, p)
}

func (s *Store) GetProfile(_ context.Context, id string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.profiles, func(p models.Profile) bool { return p.ID == id })
	if i < 0 {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, repository.ErrNotFound)
	}
	return s.profiles[i], nil
}

func (s *Store) FindProfileByPhone(_ context.Context, phone string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.profiles, func(p models.Profile) bool { return p.Phone == phone })
	if i < 0 {
		return models.Profile{}, fmt.Errorf("profile with phone %s: %w", phone, repository.ErrNotFound)
	}
	return s.profiles[i], nil
}

func (s *Store) ListProfiles(context.Context) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.profiles), nil
}

func (s *Store) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the saved daily reports.
func (s *Store) Reports() []models.DailyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.reports)
}
