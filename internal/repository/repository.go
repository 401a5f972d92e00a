// Package repository declares the store contract the rest of the service
// depends on. Implementations live in sub-packages.
package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// Scope restricts reads to one user's ponds, or to the whole fleet.
type Scope struct {
	UserID string
	All    bool
}

// ScopeFor maps a session to the records it may read.
func ScopeFor(s models.Session) Scope {
	return Scope{UserID: s.UserID, All: s.IsAdmin()}
}

// Reader lists the four pond collections for a scope.
type Reader interface {
	ListPonds(ctx context.Context, scope Scope) ([]models.Pond, error)
	ListFeedingSchedules(ctx context.Context, scope Scope) ([]models.FeedingSchedule, error)
	ListHealthRecords(ctx context.Context, scope Scope) ([]models.HealthRecord, error)
	ListWaterQualityLogs(ctx context.Context, scope Scope) ([]models.WaterQualityLog, error)
}

// Store is the full read/write contract.
type Store interface {
	Reader

	GetPond(ctx context.Context, id string) (models.Pond, error)
	InsertPond(ctx context.Context, pond models.Pond) error
	UpdatePond(ctx context.Context, pond models.Pond) error
	DeletePond(ctx context.Context, id string) error

	GetFeedingSchedule(ctx context.Context, id string) (models.FeedingSchedule, error)
	InsertFeedingSchedule(ctx context.Context, schedule models.FeedingSchedule) error
	UpdateFeedingStatus(ctx context.Context, id string, status models.FeedingStatus) error
	DeleteFeedingSchedule(ctx context.Context, id string) error

	GetHealthRecord(ctx context.Context, id string) (models.HealthRecord, error)
	InsertHealthRecord(ctx context.Context, record models.HealthRecord) error
	DeleteHealthRecord(ctx context.Context, id string) error

	InsertWaterQualityLog(ctx context.Context, log models.WaterQualityLog) error

	GetProfile(ctx context.Context, id string) (models.Profile, error)
	FindProfileByPhone(ctx context.Context, phone string) (models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)

	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}
