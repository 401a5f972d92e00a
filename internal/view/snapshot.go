package view

import (
	"time"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/realtime"
)

// RecentHealthRecords is how many health records a snapshot lists.
const RecentHealthRecords = 20

// Snapshot is the read-only derived state of one view. A new Snapshot is
// built for every applied change; published snapshots are never mutated.
type Snapshot struct {
	Kind      Kind      `json:"kind"`
	UserID    string    `json:"user_id"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	Fleet        aggregate.FleetCounts        `json:"fleet"`
	TodayFeeding aggregate.FeedingSummary     `json:"today_feeding"`
	Weekly       [7]aggregate.DayPerformance  `json:"weekly"`
	HealthTrend  aggregate.Trend              `json:"health_trend"`
	Ponds        []aggregate.PondMetrics      `json:"ponds"`
	WaterQuality aggregate.WaterQualityRollup `json:"water_quality"`
	Alerts       aggregate.AlertSummary       `json:"alerts"`
	Growth       []aggregate.GrowthPrediction `json:"growth"`
	Schedules    []models.FeedingSchedule     `json:"feeding_schedules,omitempty"`
	Health       []models.HealthRecord        `json:"health_records,omitempty"`
	WaterLogs    []models.WaterQualityLog     `json:"water_quality_logs,omitempty"`
	Owners       int                          `json:"owners,omitempty"`
	Errors       map[realtime.Table]string    `json:"errors,omitempty"`
}

// raw is the last-known content of every watched collection. It is owned by
// the view's loop.
type raw struct {
	ponds     []models.Pond
	schedules []models.FeedingSchedule
	health    []models.HealthRecord
	water     []models.WaterQualityLog
	errors    map[realtime.Table]string
}

type computeParams struct {
	kind     Kind
	userID   string
	version  uint64
	now      time.Time
	location *time.Location
	prices   aggregate.Prices
}

// compute derives a full snapshot from raw state. It never looks at the
// previous snapshot.
func compute(r *raw, p computeParams) *Snapshot {
	s := &Snapshot{
		Kind:         p.kind,
		UserID:       p.userID,
		Version:      p.version,
		UpdatedAt:    p.now,
		Fleet:        aggregate.Fleet(r.ponds),
		TodayFeeding: aggregate.TodayFeeding(r.schedules, p.now, p.location),
		Weekly:       aggregate.WeeklyPerformance(r.schedules, p.location),
		HealthTrend:  aggregate.HealthTrend(r.health),
		Ponds:        aggregate.Metrics(r.ponds, r.health, r.water, p.prices),
		WaterQuality: aggregate.WaterQuality(r.water),
		Alerts:       aggregate.Alerts(r.ponds),
		Growth:       aggregate.GrowthPredictions(r.ponds, r.schedules, r.health, p.now, p.location, p.prices),
	}

	switch p.kind {
	case KindFeeding:
		s.Schedules = r.schedules
	case KindHealth:
		s.Health = aggregate.MostRecent(r.health, RecentHealthRecords, func(h models.HealthRecord) time.Time { return h.CreatedAt })
	case KindWaterQuality:
		s.WaterLogs = aggregate.MostRecent(r.water, aggregate.WaterQualityWindow, func(w models.WaterQualityLog) time.Time { return w.RecordedAt })
	case KindAdmin:
		owners := make(map[string]struct{})
		for _, pond := range r.ponds {
			owners[pond.UserID] = struct{}{}
		}
		s.Owners = len(owners)
	}

	if len(r.errors) > 0 {
		s.Errors = make(map[realtime.Table]string, len(r.errors))
		for t, e := range r.errors {
			s.Errors[t] = e
		}
	}
	return s
}
