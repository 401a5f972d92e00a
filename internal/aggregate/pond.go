package aggregate

import (
	"time"

	"github.com/mamadbah2/pondwatch/internal/calc"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// Prices parameterizes revenue and cost estimates.
type Prices struct {
	FishPerKg float64
	FeedPerKg float64
}

// DefaultPrices uses the calc default fish price and a feed price of 10000/kg.
var DefaultPrices = Prices{FishPerKg: calc.DefaultPricePerKg, FeedPerKg: 10000}

// PondMetrics is the derived row shown for each pond.
type PondMetrics struct {
	PondID            string              `json:"pond_id"`
	Name              string              `json:"name"`
	Status            models.PondStatus   `json:"status"`
	Health            models.HealthStatus `json:"health"`
	StockingDensity   float64             `json:"stocking_density"`
	Efficiency        int                 `json:"efficiency"`
	WaterQualityIndex int                 `json:"water_quality_index"`
	TemperatureStatus *calc.Status        `json:"temperature_status,omitempty"`
	PHStatus          *calc.Status        `json:"ph_status,omitempty"`
	EstimatedRevenue  int                 `json:"estimated_revenue"`
	DailyFeedKg       float64             `json:"daily_feed_kg"`
	HarvestDays       int                 `json:"harvest_days"`
}

// Readings are the water values used for a pond's scores.
type Readings struct {
	Temperature     *float64
	PH              *float64
	DissolvedOxygen *float64
	Ammonia         *float64
}

// LatestReadings takes each value from the pond's newest water log and falls
// back to the pond's declared temperature and pH.
func LatestReadings(pond models.Pond, logs []models.WaterQualityLog) Readings {
	out := Readings{Temperature: pond.WaterTemperature, PH: pond.PHLevel}

	var latest *models.WaterQualityLog
	for i := range logs {
		l := &logs[i]
		if l.PondID != pond.ID {
			continue
		}
		if latest == nil || l.RecordedAt.After(latest.RecordedAt) {
			latest = l
		}
	}
	if latest == nil {
		return out
	}

	if latest.Temperature != nil {
		out.Temperature = latest.Temperature
	}
	if latest.PH != nil {
		out.PH = latest.PH
	}
	out.DissolvedOxygen = latest.DissolvedOxygen
	out.Ammonia = latest.AmmoniaLevel
	return out
}

// Metrics derives the per-pond row for every pond.
func Metrics(ponds []models.Pond, health []models.HealthRecord, logs []models.WaterQualityLog, prices Prices) []PondMetrics {
	out := make([]PondMetrics, 0, len(ponds))
	for _, p := range ponds {
		r := LatestReadings(p, logs)
		m := PondMetrics{
			PondID:            p.ID,
			Name:              p.Name,
			Status:            p.Status,
			Health:            LatestHealth(health, p.ID),
			StockingDensity:   calc.StockingDensity(p.FishCount, p.SizeM2),
			Efficiency:        calc.PondEfficiency(p.FishCount, p.SizeM2, r.Temperature, r.PH),
			WaterQualityIndex: calc.WaterQualityIndex(r.Temperature, r.PH, r.DissolvedOxygen, r.Ammonia),
			EstimatedRevenue:  calc.EstimatedRevenue(p.FishCount, p.FishAgeDays, prices.FishPerKg),
			DailyFeedKg:       calc.FeedingAmount(p.FishCount, p.FishAgeDays),
			HarvestDays:       calc.HarvestDaysRemaining(p.FishAgeDays, calc.DefaultTargetWeightGrams),
		}
		if r.Temperature != nil {
			s := calc.TemperatureStatus(*r.Temperature)
			m.TemperatureStatus = &s
		}
		if r.PH != nil {
			s := calc.PHStatus(*r.PH)
			m.PHStatus = &s
		}
		out = append(out, m)
	}
	return out
}

// GrowthPrediction projects a pond to its harvest.
type GrowthPrediction struct {
	PondID              string    `json:"pond_id"`
	HarvestDate         time.Time `json:"harvest_date"`
	DaysToHarvest       int       `json:"days_to_harvest"`
	CurrentWeightGrams  float64   `json:"current_weight_grams"`
	ExpectedWeightGrams float64   `json:"expected_weight_grams"`
	ExpectedYieldKg     float64   `json:"expected_yield_kg"`
	FeedUsedKg          float64   `json:"feed_used_kg"`
	ProfitMarginPct     float64   `json:"profit_margin_pct"`
}

var survivalByHealth = map[models.HealthStatus]float64{
	models.HealthHealthy:  0.95,
	models.HealthSick:     0.85,
	models.HealthCritical: 0.70,
}

// GrowthPredictions projects harvest date, yield and margin for every pond
// from its age, the feed it has actually received and its latest health.
// Harvest dates are local midnights in loc.
func GrowthPredictions(ponds []models.Pond, schedules []models.FeedingSchedule, health []models.HealthRecord, now time.Time, loc *time.Location, prices Prices) []GrowthPrediction {
	if loc == nil {
		loc = time.Local
	}
	feedByPond := make(map[string]float64, len(ponds))
	for _, s := range schedules {
		if s.Status == models.FeedingCompleted {
			feedByPond[s.PondID] += s.FeedAmountKg
		}
	}

	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	out := make([]GrowthPrediction, 0, len(ponds))
	for _, p := range ponds {
		days := calc.HarvestDaysRemaining(p.FishAgeDays, calc.DefaultTargetWeightGrams)
		survival, ok := survivalByHealth[LatestHealth(health, p.ID)]
		if !ok {
			survival = survivalByHealth[models.HealthHealthy]
		}

		yieldKg := float64(p.FishCount) * survival * calc.DefaultTargetWeightGrams / 1000
		revenue := yieldKg * prices.FishPerKg
		feedKg := feedByPond[p.ID]

		var margin float64
		if revenue > 0 {
			margin = calc.Round2((revenue - feedKg*prices.FeedPerKg) / revenue * 100)
		}

		out = append(out, GrowthPrediction{
			PondID:              p.ID,
			HarvestDate:         today.AddDate(0, 0, days),
			DaysToHarvest:       days,
			CurrentWeightGrams:  float64(p.FishAgeDays) * 6,
			ExpectedWeightGrams: calc.DefaultTargetWeightGrams,
			ExpectedYieldKg:     calc.Round2(yieldKg),
			FeedUsedKg:          calc.Round2(feedKg),
			ProfitMarginPct:     margin,
		})
	}
	return out
}
