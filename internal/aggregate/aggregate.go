// Package aggregate folds raw pond records into dashboard summaries. Every
// function is pure: callers pass the collections they hold and get a fresh
// value back, so recomputing from unchanged input yields identical output.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/mamadbah2/pondwatch/internal/calc"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

const (
	// TrendWindow is the number of health records in each comparison window.
	TrendWindow = 5
	// WaterQualityWindow is the number of recent logs averaged for the fleet.
	WaterQualityWindow = 10

	trendThreshold = 0.10
)

// FleetCounts summarizes a set of ponds.
type FleetCounts struct {
	TotalPonds       int `json:"total_ponds"`
	ActivePonds      int `json:"active_ponds"`
	MaintenancePonds int `json:"maintenance_ponds"`
	InactivePonds    int `json:"inactive_ponds"`
	TotalFish        int `json:"total_fish"`
	AverageFishAge   int `json:"average_fish_age"`
}

// Fleet counts ponds by status and totals the stock.
func Fleet(ponds []models.Pond) FleetCounts {
	var out FleetCounts
	var ageSum int

	for _, p := range ponds {
		out.TotalPonds++
		out.TotalFish += p.FishCount
		ageSum += p.FishAgeDays

		switch p.Status {
		case models.PondActive:
			out.ActivePonds++
		case models.PondMaintenance:
			out.MaintenancePonds++
		case models.PondInactive:
			out.InactivePonds++
		}
	}

	if out.TotalPonds > 0 {
		out.AverageFishAge = int(math.Round(float64(ageSum) / float64(out.TotalPonds)))
	}
	return out
}

// FeedingSummary describes the feedings created on one calendar day.
type FeedingSummary struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pending"`
	Completed  int     `json:"completed"`
	FeedKg     float64 `json:"feed_kg"`
	Efficiency float64 `json:"efficiency"`
}

// TodayFeeding keeps the schedules created on now's calendar day in loc.
func TodayFeeding(schedules []models.FeedingSchedule, now time.Time, loc *time.Location) FeedingSummary {
	if loc == nil {
		loc = time.Local
	}
	today := dayOf(now, loc)

	var out FeedingSummary
	for _, s := range schedules {
		if dayOf(s.CreatedAt, loc) != today {
			continue
		}
		out.Total++
		out.FeedKg += s.FeedAmountKg
		if s.Status == models.FeedingCompleted {
			out.Completed++
		} else {
			out.Pending++
		}
	}

	out.FeedKg = calc.Round2(out.FeedKg)
	out.Efficiency = efficiency(out.Completed, out.Total)
	return out
}

// DayPerformance is one weekday bucket of the weekly breakdown.
type DayPerformance struct {
	Day        string  `json:"day"`
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Efficiency float64 `json:"efficiency"`
}

var mondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

// WeeklyPerformance groups schedules by the weekday they were created on,
// across all history, Monday first.
func WeeklyPerformance(schedules []models.FeedingSchedule, loc *time.Location) [7]DayPerformance {
	if loc == nil {
		loc = time.Local
	}

	var out [7]DayPerformance
	for i, wd := range mondayFirst {
		out[i].Day = wd.String()
	}

	for _, s := range schedules {
		idx := (int(s.CreatedAt.In(loc).Weekday()) + 6) % 7
		out[idx].Total++
		if s.Status == models.FeedingCompleted {
			out[idx].Completed++
		}
	}

	for i := range out {
		out[i].Efficiency = efficiency(out[i].Completed, out[i].Total)
	}
	return out
}

// Trend is the direction of recent health outcomes.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// HealthTrend compares the healthy ratio of the latest TrendWindow records
// with the TrendWindow before them.
func HealthTrend(records []models.HealthRecord) Trend {
	ordered := MostRecent(records, 2*TrendWindow, func(r models.HealthRecord) time.Time { return r.CreatedAt })
	if len(ordered) == 0 {
		return TrendStable
	}

	recent := ordered[:min(TrendWindow, len(ordered))]
	older := ordered[len(recent):]

	recentRatio := healthyRatio(recent)
	olderRatio := recentRatio
	if len(older) > 0 {
		olderRatio = healthyRatio(older)
	}
	return ClassifyTrend(recentRatio, olderRatio)
}

// ClassifyTrend applies the strict ±0.10 thresholds to two healthy ratios.
func ClassifyTrend(recentRatio, olderRatio float64) Trend {
	// Rounding keeps 0.8-0.7 from landing a hair above the threshold.
	diff := math.Round((recentRatio-olderRatio)*1e6) / 1e6
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func healthyRatio(records []models.HealthRecord) float64 {
	healthy := 0
	for _, r := range records {
		if r.HealthStatus == models.HealthHealthy {
			healthy++
		}
	}
	return float64(healthy) / float64(len(records))
}

// LatestHealth is the status of the pond's most recent record, healthy when it has none.
func LatestHealth(records []models.HealthRecord, pondID string) models.HealthStatus {
	var latest *models.HealthRecord
	for i := range records {
		r := &records[i]
		if r.PondID != pondID {
			continue
		}
		// Strictly after: the earlier arrival wins a tie.
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return models.HealthHealthy
	}
	return latest.HealthStatus
}

// WaterQualityRollup averages the fleet's latest readings. Nil means no reading was available.
type WaterQualityRollup struct {
	AverageTemperature *float64 `json:"average_temperature,omitempty"`
	AveragePH          *float64 `json:"average_ph,omitempty"`
	Samples            int      `json:"samples"`
}

// WaterQuality averages temperature and pH over the WaterQualityWindow most recent logs.
func WaterQuality(logs []models.WaterQualityLog) WaterQualityRollup {
	recent := MostRecent(logs, WaterQualityWindow, func(l models.WaterQualityLog) time.Time { return l.RecordedAt })

	var tempSum, phSum float64
	var tempN, phN int
	for _, l := range recent {
		if l.Temperature != nil {
			tempSum += *l.Temperature
			tempN++
		}
		if l.PH != nil {
			phSum += *l.PH
			phN++
		}
	}

	out := WaterQualityRollup{Samples: len(recent)}
	if tempN > 0 {
		out.AverageTemperature = models.Float(calc.Round2(tempSum / float64(tempN)))
	}
	if phN > 0 {
		out.AveragePH = models.Float(calc.Round2(phSum / float64(phN)))
	}
	return out
}

// PondAlert lists why a pond's declared water readings are out of the optimal band.
type PondAlert struct {
	PondID      string `json:"pond_id"`
	PondName    string `json:"pond_name"`
	Temperature bool   `json:"temperature"`
	PH          bool   `json:"ph"`
}

// AlertSummary is the fleet-wide alert view.
type AlertSummary struct {
	Count int         `json:"count"`
	Ponds []PondAlert `json:"ponds"`
}

// Alerts flags ponds whose declared temperature or pH is outside the optimal band.
func Alerts(ponds []models.Pond) AlertSummary {
	out := AlertSummary{Ponds: []PondAlert{}}
	for _, p := range ponds {
		alert := PondAlert{PondID: p.ID, PondName: p.Name}
		if p.WaterTemperature != nil && !calc.TemperatureOptimal.Contains(*p.WaterTemperature) {
			alert.Temperature = true
		}
		if p.PHLevel != nil && !calc.PHOptimal.Contains(*p.PHLevel) {
			alert.PH = true
		}
		if alert.Temperature || alert.PH {
			out.Ponds = append(out.Ponds, alert)
		}
	}
	out.Count = len(out.Ponds)
	return out
}

// MostRecent returns up to n items ordered by timestamp, newest first.
// Items with equal timestamps keep the order they arrived in.
func MostRecent[T any](items []T, n int, at func(T) time.Time) []T {
	ordered := make([]T, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return at(ordered[i]).After(at(ordered[j]))
	})
	if n >= 0 && len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}

func efficiency(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return calc.Round2(float64(completed) / float64(total) * 100)
}

func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
