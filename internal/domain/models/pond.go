package models

import "time"

// PondStatus is the operational state a farmer declares for a pond.
type PondStatus string

const (
	PondActive      PondStatus = "active"
	PondMaintenance PondStatus = "maintenance"
	PondInactive    PondStatus = "inactive"
)

// FeedingStatus tracks whether a scheduled feeding happened.
type FeedingStatus string

const (
	FeedingPending   FeedingStatus = "pending"
	FeedingCompleted FeedingStatus = "completed"
)

// HealthStatus is the outcome of a fish health inspection.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthSick     HealthStatus = "sick"
	HealthCritical HealthStatus = "critical"
)

// Pond is a unit of fish-rearing infrastructure owned by one user.
type Pond struct {
	ID               string     `bson:"_id" json:"id"`
	UserID           string     `bson:"user_id" json:"user_id"`
	Name             string     `bson:"name" json:"name"`
	SizeM2           float64    `bson:"size_m2" json:"size_m2"`
	DepthM           float64    `bson:"depth_m" json:"depth_m"`
	FishCount        int        `bson:"fish_count" json:"fish_count"`
	FishAgeDays      int        `bson:"fish_age_days" json:"fish_age_days"`
	Status           PondStatus `bson:"status" json:"status"`
	WaterTemperature *float64   `bson:"water_temperature,omitempty" json:"water_temperature,omitempty"`
	PHLevel          *float64   `bson:"ph_level,omitempty" json:"ph_level,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

// FeedingSchedule is a planned or executed feeding for a pond.
type FeedingSchedule struct {
	ID           string        `bson:"_id" json:"id"`
	PondID       string        `bson:"pond_id" json:"pond_id"`
	FeedingTime  string        `bson:"feeding_time" json:"feeding_time"`
	FeedAmountKg float64       `bson:"feed_amount_kg" json:"feed_amount_kg"`
	FeedType     string        `bson:"feed_type" json:"feed_type"`
	Status       FeedingStatus `bson:"status" json:"status"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
}

// HealthRecord captures one inspection of a pond's fish.
type HealthRecord struct {
	ID           string       `bson:"_id" json:"id"`
	PondID       string       `bson:"pond_id" json:"pond_id"`
	HealthStatus HealthStatus `bson:"health_status" json:"health_status"`
	Symptoms     string       `bson:"symptoms,omitempty" json:"symptoms,omitempty"`
	Treatment    string       `bson:"treatment,omitempty" json:"treatment,omitempty"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
}

// WaterQualityLog is a set of sensor or manual readings. Every reading is optional.
type WaterQualityLog struct {
	ID              string    `bson:"_id" json:"id"`
	PondID          string    `bson:"pond_id" json:"pond_id"`
	Temperature     *float64  `bson:"temperature,omitempty" json:"temperature,omitempty"`
	PH              *float64  `bson:"ph,omitempty" json:"ph,omitempty"`
	DissolvedOxygen *float64  `bson:"dissolved_oxygen,omitempty" json:"dissolved_oxygen,omitempty"`
	AmmoniaLevel    *float64  `bson:"ammonia_level,omitempty" json:"ammonia_level,omitempty"`
	RecordedAt      time.Time `bson:"recorded_at" json:"recorded_at"`
}

// Float returns a pointer to v, for building optional readings.
func Float(v float64) *float64 {
	return &v
}
