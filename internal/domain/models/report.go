package models

import "time"

// DailyReport is the per-farmer fleet summary stored in MongoDB and exported to Sheets.
type DailyReport struct {
	Date             time.Time `bson:"date" json:"date"`
	UserID           string    `bson:"user_id" json:"user_id"`
	TotalPonds       int       `bson:"total_ponds" json:"total_ponds"`
	ActivePonds      int       `bson:"active_ponds" json:"active_ponds"`
	TotalFish        int       `bson:"total_fish" json:"total_fish"`
	FeedingsTotal    int       `bson:"feedings_total" json:"feedings_total"`
	FeedingsDone     int       `bson:"feedings_done" json:"feedings_done"`
	FeedKg           float64   `bson:"feed_kg" json:"feed_kg"`
	FeedingEff       float64   `bson:"feeding_efficiency" json:"feeding_efficiency"`
	Alerts           int       `bson:"alerts" json:"alerts"`
	HealthTrend      string    `bson:"health_trend" json:"health_trend"`
	AvgTemperature   *float64  `bson:"avg_temperature,omitempty" json:"avg_temperature,omitempty"`
	AvgPH            *float64  `bson:"avg_ph,omitempty" json:"avg_ph,omitempty"`
	EstimatedRevenue int       `bson:"estimated_revenue" json:"estimated_revenue"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}
