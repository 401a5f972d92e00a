package aggregate_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/mamadbah2/pondwatch/internal/aggregate"
	"github.com/mamadbah2/pondwatch/internal/calc"
	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// Friday.
var now = time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

func TestFleet(t *testing.T) {
	ponds := []models.Pond{
		{ID: "a", Status: models.PondActive, FishCount: 1000, FishAgeDays: 30},
		{ID: "b", Status: models.PondActive, FishCount: 500, FishAgeDays: 45},
		{ID: "c", Status: models.PondMaintenance, FishCount: 0, FishAgeDays: 0},
		{ID: "d", Status: models.PondInactive, FishCount: 200, FishAgeDays: 10},
	}

	first := aggregate.Fleet(ponds)
	expected := aggregate.FleetCounts{
		TotalPonds: 4, ActivePonds: 2, MaintenancePonds: 1, InactivePonds: 1,
		TotalFish: 1700, AverageFishAge: 21,
	}
	if first != expected {
		t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", first, expected)
	}

	if second := aggregate.Fleet(ponds); second != first {
		t.Errorf("recomputation differs: %+v then %+v", first, second)
	}

	if empty := aggregate.Fleet(nil); empty != (aggregate.FleetCounts{}) {
		t.Errorf("empty fleet: %+v", empty)
	}
}

func TestTodayFeeding(t *testing.T) {
	schedules := []models.FeedingSchedule{
		{ID: "1", Status: models.FeedingCompleted, FeedAmountKg: 2.5, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Status: models.FeedingCompleted, FeedAmountKg: 1.25, CreatedAt: now.Add(-1 * time.Hour)},
		{ID: "3", Status: models.FeedingPending, FeedAmountKg: 3, CreatedAt: now},
		{ID: "4", Status: models.FeedingCompleted, FeedAmountKg: 10, CreatedAt: now.AddDate(0, 0, -1)},
	}

	actual := aggregate.TodayFeeding(schedules, now, time.UTC)
	expected := aggregate.FeedingSummary{Total: 3, Pending: 1, Completed: 2, FeedKg: 6.75, Efficiency: 66.67}
	if actual != expected {
		t.Errorf("unmatch: (actual, expected) = (%+v, %+v)", actual, expected)
	}

	if none := aggregate.TodayFeeding(nil, now, time.UTC); none.Efficiency != 0 || none.Total != 0 {
		t.Errorf("empty day: %+v", none)
	}
}

func TestTodayFeedingUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	// 20:00 UTC on the 15th is already the 16th at UTC+7.
	schedules := []models.FeedingSchedule{
		{ID: "late", Status: models.FeedingPending, CreatedAt: time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)},
	}

	if got := aggregate.TodayFeeding(schedules, now, loc); got.Total != 1 {
		t.Errorf("expected the schedule to count for the local day, got %+v", got)
	}
	if got := aggregate.TodayFeeding(schedules, now, time.UTC); got.Total != 0 {
		t.Errorf("expected the schedule to fall on yesterday in UTC, got %+v", got)
	}
}

func TestWeeklyPerformance(t *testing.T) {
	monday := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	schedules := []models.FeedingSchedule{
		{Status: models.FeedingCompleted, CreatedAt: monday},
		{Status: models.FeedingPending, CreatedAt: monday.AddDate(0, 0, -7)},
		{Status: models.FeedingCompleted, CreatedAt: sunday},
	}

	week := aggregate.WeeklyPerformance(schedules, time.UTC)

	if week[0].Day != "Monday" || week[6].Day != "Sunday" {
		t.Fatalf("buckets must be monday-first: %v, %v", week[0].Day, week[6].Day)
	}
	if week[0].Total != 2 || week[0].Completed != 1 || week[0].Efficiency != 50 {
		t.Errorf("monday bucket groups across weeks: %+v", week[0])
	}
	if week[6].Total != 1 || week[6].Efficiency != 100 {
		t.Errorf("sunday bucket: %+v", week[6])
	}
	if week[3].Total != 0 || week[3].Efficiency != 0 {
		t.Errorf("empty thursday bucket: %+v", week[3])
	}
}

func healthRecords(statuses ...models.HealthStatus) []models.HealthRecord {
	out := make([]models.HealthRecord, len(statuses))
	for i, s := range statuses {
		// Index 0 is the newest.
		out[i] = models.HealthRecord{PondID: "p", HealthStatus: s, CreatedAt: now.Add(-time.Duration(i) * time.Hour)}
	}
	return out
}

func TestHealthTrend(t *testing.T) {
	h, s, c := models.HealthHealthy, models.HealthSick, models.HealthCritical

	for name, testcase := range map[string]struct {
		when []models.HealthRecord
		then aggregate.Trend
	}{
		"no records is stable": {
			when: nil,
			then: aggregate.TrendStable,
		},
		"0.8 recent vs 0.6 older is improving": {
			when: healthRecords(h, h, h, h, s, h, h, h, s, c),
			then: aggregate.TrendImproving,
		},
		"0.4 recent vs 1.0 older is declining": {
			when: healthRecords(h, s, h, c, s, h, h, h, h, h),
			then: aggregate.TrendDeclining,
		},
		"difference of exactly 0.10 is stable": {
			when: healthRecords(h, h, h, s, s, h, s),
			then: aggregate.TrendStable,
		},
		"only one window falls back to itself": {
			when: healthRecords(s, s, h),
			then: aggregate.TrendStable,
		},
		"records beyond the two windows are ignored": {
			when: healthRecords(h, h, h, h, h, h, h, h, h, h, c, c, c),
			then: aggregate.TrendStable,
		},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := aggregate.HealthTrend(testcase.when); actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, testcase.then)
			}
		})
	}
}

func TestHealthTrendOrdersByCreationTime(t *testing.T) {
	records := healthRecords(models.HealthSick, models.HealthSick, models.HealthSick, models.HealthSick, models.HealthSick,
		models.HealthHealthy, models.HealthHealthy, models.HealthHealthy, models.HealthHealthy, models.HealthHealthy)
	// Reverse arrival order; the result must not change.
	reversed := make([]models.HealthRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}

	if got := aggregate.HealthTrend(reversed); got != aggregate.TrendDeclining {
		t.Errorf("expected declining, got %s", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	for name, testcase := range map[string]struct {
		recent, older float64
		then          aggregate.Trend
	}{
		"0.8 vs 0.6":          {recent: 0.8, older: 0.6, then: aggregate.TrendImproving},
		"0.8 vs 0.7 boundary": {recent: 0.8, older: 0.7, then: aggregate.TrendStable},
		"0.6 vs 0.7 boundary": {recent: 0.6, older: 0.7, then: aggregate.TrendStable},
		"0.5 vs 0.7":          {recent: 0.5, older: 0.7, then: aggregate.TrendDeclining},
	} {
		t.Run(name, func(t *testing.T) {
			if actual := aggregate.ClassifyTrend(testcase.recent, testcase.older); actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, testcase.then)
			}
		})
	}
}

func TestLatestHealth(t *testing.T) {
	records := []models.HealthRecord{
		{PondID: "p1", HealthStatus: models.HealthSick, CreatedAt: now.Add(-time.Hour)},
		{PondID: "p1", HealthStatus: models.HealthCritical, CreatedAt: now},
		{PondID: "p1", HealthStatus: models.HealthHealthy, CreatedAt: now},
		{PondID: "p2", HealthStatus: models.HealthSick, CreatedAt: now.Add(time.Hour)},
	}

	if got := aggregate.LatestHealth(records, "p1"); got != models.HealthCritical {
		t.Errorf("latest for p1 (tie keeps arrival order): got %s", got)
	}
	if got := aggregate.LatestHealth(records, "p3"); got != models.HealthHealthy {
		t.Errorf("pond without records defaults to healthy: got %s", got)
	}
}

func TestWaterQuality(t *testing.T) {
	var logs []models.WaterQualityLog
	for i := range 12 {
		temp := 28.0
		if i >= 10 {
			// The two oldest logs fall outside the window.
			temp = 100
		}
		log := models.WaterQualityLog{PondID: "p", Temperature: models.Float(temp), RecordedAt: now.Add(-time.Duration(i) * time.Minute)}
		if i%2 == 0 {
			log.PH = models.Float(7)
		}
		logs = append(logs, log)
	}

	rollup := aggregate.WaterQuality(logs)
	if rollup.Samples != 10 {
		t.Errorf("samples: %d", rollup.Samples)
	}
	if rollup.AverageTemperature == nil || *rollup.AverageTemperature != 28 {
		t.Errorf("average temperature: %v", rollup.AverageTemperature)
	}
	if rollup.AveragePH == nil || *rollup.AveragePH != 7 {
		t.Errorf("absent pH readings must not drag the mean: %v", rollup.AveragePH)
	}

	empty := aggregate.WaterQuality([]models.WaterQualityLog{{PondID: "p", RecordedAt: now}})
	if empty.AverageTemperature != nil || empty.AveragePH != nil {
		t.Errorf("no readings means no average: %+v", empty)
	}
}

func TestAlerts(t *testing.T) {
	ponds := []models.Pond{
		{ID: "ok", WaterTemperature: models.Float(28), PHLevel: models.Float(7)},
		{ID: "hot", WaterTemperature: models.Float(31)},
		{ID: "acid", PHLevel: models.Float(6.4)},
		{ID: "unknown"},
	}

	summary := aggregate.Alerts(ponds)
	expected := []aggregate.PondAlert{
		{PondID: "hot", Temperature: true},
		{PondID: "acid", PH: true},
	}
	if summary.Count != 2 || !reflect.DeepEqual(summary.Ponds, expected) {
		t.Errorf("unmatch: %+v", summary)
	}
}

func TestMostRecentKeepsArrivalOrderOnTies(t *testing.T) {
	type item struct {
		name string
		at   time.Time
	}
	items := []item{{"a", now}, {"b", now.Add(time.Minute)}, {"c", now}, {"d", now}}

	got := aggregate.MostRecent(items, 3, func(i item) time.Time { return i.at })
	names := []string{}
	for _, i := range got {
		names = append(names, i.name)
	}
	if !reflect.DeepEqual(names, []string{"b", "a", "c"}) {
		t.Errorf("unexpected order: %v", names)
	}
	if items[0].name != "a" || items[1].name != "b" {
		t.Error("input slice must not be reordered")
	}
}

func TestLatestReadings(t *testing.T) {
	pond := models.Pond{ID: "p1", WaterTemperature: models.Float(28), PHLevel: models.Float(7)}

	testCases := map[string]struct {
		logs []models.WaterQualityLog
		want aggregate.Readings
	}{
		"declared readings without logs": {
			want: aggregate.Readings{Temperature: models.Float(28), PH: models.Float(7)},
		},
		"newest log wins and missing pH falls back": {
			logs: []models.WaterQualityLog{
				{PondID: "p1", Temperature: models.Float(20), PH: models.Float(5), RecordedAt: now.Add(-time.Hour)},
				{PondID: "p1", Temperature: models.Float(31), DissolvedOxygen: models.Float(5), RecordedAt: now},
				{PondID: "p2", Temperature: models.Float(40), RecordedAt: now.Add(time.Hour)},
			},
			want: aggregate.Readings{Temperature: models.Float(31), PH: models.Float(7), DissolvedOxygen: models.Float(5)},
		},
		"other ponds' logs are ignored": {
			logs: []models.WaterQualityLog{{PondID: "p2", Temperature: models.Float(40), RecordedAt: now}},
			want: aggregate.Readings{Temperature: models.Float(28), PH: models.Float(7)},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			actual := aggregate.LatestReadings(pond, tc.logs)
			if !reflect.DeepEqual(actual, tc.want) {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", describe(actual), describe(tc.want))
			}
		})
	}
}

func describe(r aggregate.Readings) string {
	deref := func(v *float64) any {
		if v == nil {
			return nil
		}
		return *v
	}
	return fmt.Sprint(deref(r.Temperature), deref(r.PH), deref(r.DissolvedOxygen), deref(r.Ammonia))
}

func TestMetrics(t *testing.T) {
	ponds := []models.Pond{{
		ID: "p1", Name: "North", Status: models.PondActive, SizeM2: 100, FishCount: 1000, FishAgeDays: 30,
		WaterTemperature: models.Float(28), PHLevel: models.Float(7),
	}}
	health := []models.HealthRecord{
		{PondID: "p1", HealthStatus: models.HealthHealthy, CreatedAt: now.Add(-time.Hour)},
		{PondID: "p1", HealthStatus: models.HealthSick, CreatedAt: now},
	}
	logs := []models.WaterQualityLog{{PondID: "p1", Temperature: models.Float(31), RecordedAt: now}}

	got := aggregate.Metrics(ponds, health, logs, aggregate.DefaultPrices)
	if len(got) != 1 {
		t.Fatalf("expected one row, got %d", len(got))
	}
	m := got[0]

	if m.Health != models.HealthSick {
		t.Errorf("health: %s", m.Health)
	}
	if m.StockingDensity != 10 || m.Efficiency != 85 || m.WaterQualityIndex != 80 {
		t.Errorf("scores: density=%v efficiency=%d wqi=%d", m.StockingDensity, m.Efficiency, m.WaterQualityIndex)
	}
	if m.TemperatureStatus == nil || *m.TemperatureStatus != calc.StatusWarning {
		t.Errorf("temperature status from the newest log: %v", m.TemperatureStatus)
	}
	if m.PHStatus == nil || *m.PHStatus != calc.StatusOptimal {
		t.Errorf("pH status from the declared reading: %v", m.PHStatus)
	}
	if m.EstimatedRevenue != 4500000 || m.DailyFeedKg != 60 || m.HarvestDays != 54 {
		t.Errorf("estimates: revenue=%d feed=%v harvest=%d", m.EstimatedRevenue, m.DailyFeedKg, m.HarvestDays)
	}

	bare := aggregate.Metrics([]models.Pond{{ID: "p2", SizeM2: 10}}, nil, nil, aggregate.DefaultPrices)[0]
	if bare.TemperatureStatus != nil || bare.PHStatus != nil || bare.WaterQualityIndex != 0 {
		t.Errorf("pond without readings: %+v", bare)
	}
}

func TestGrowthPredictions(t *testing.T) {
	schedules := []models.FeedingSchedule{
		{PondID: "p1", FeedAmountKg: 60, Status: models.FeedingCompleted},
		{PondID: "p1", FeedAmountKg: 40, Status: models.FeedingCompleted},
		{PondID: "p1", FeedAmountKg: 50, Status: models.FeedingPending},
	}

	testCases := map[string]struct {
		pond       models.Pond
		health     models.HealthStatus
		wantYield  float64
		wantFeed   float64
		wantMargin float64
	}{
		"healthy": {
			pond:      models.Pond{ID: "p1", FishCount: 1000, FishAgeDays: 50},
			wantYield: 475, wantFeed: 100, wantMargin: 91.58,
		},
		"sick lowers survival": {
			pond: models.Pond{ID: "p1", FishCount: 1000, FishAgeDays: 50}, health: models.HealthSick,
			wantYield: 425, wantFeed: 100, wantMargin: 90.59,
		},
		"critical lowers survival further": {
			pond: models.Pond{ID: "p1", FishCount: 1000, FishAgeDays: 50}, health: models.HealthCritical,
			wantYield: 350, wantFeed: 100, wantMargin: 88.57,
		},
		"no fish means no revenue and no margin": {
			pond:      models.Pond{ID: "p1", FishAgeDays: 50},
			wantYield: 0, wantFeed: 100, wantMargin: 0,
		},
		"feed of other ponds is not counted": {
			pond:      models.Pond{ID: "p9", FishCount: 1000, FishAgeDays: 50},
			wantYield: 475, wantFeed: 0, wantMargin: 100,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var health []models.HealthRecord
			if tc.health != "" {
				health = append(health, models.HealthRecord{PondID: tc.pond.ID, HealthStatus: tc.health, CreatedAt: now})
			}

			got := aggregate.GrowthPredictions([]models.Pond{tc.pond}, schedules, health, now, time.UTC, aggregate.DefaultPrices)[0]
			if got.ExpectedYieldKg != tc.wantYield || got.FeedUsedKg != tc.wantFeed || got.ProfitMarginPct != tc.wantMargin {
				t.Errorf("unmatch: yield=%v feed=%v margin=%v", got.ExpectedYieldKg, got.FeedUsedKg, got.ProfitMarginPct)
			}
			if got.DaysToHarvest != 34 || got.CurrentWeightGrams != 300 || got.ExpectedWeightGrams != 500 {
				t.Errorf("growth: %+v", got)
			}
			if want := time.Date(2026, 11, 19, 0, 0, 0, 0, time.UTC); !got.HarvestDate.Equal(want) {
				t.Errorf("harvest date: %v, want %v", got.HarvestDate, want)
			}
		})
	}
}

func TestGrowthPredictionsUseLocalCalendarDay(t *testing.T) {
	// 20:00 UTC is already the next morning at UTC+10.
	late := time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+10", 10*60*60)
	pond := models.Pond{ID: "p1", FishCount: 10, FishAgeDays: 80}

	got := aggregate.GrowthPredictions([]models.Pond{pond}, nil, nil, late, loc, aggregate.DefaultPrices)[0]
	want := time.Date(2026, 10, 21, 0, 0, 0, 0, loc)
	if got.DaysToHarvest != 4 || !got.HarvestDate.Equal(want) {
		t.Errorf("harvest: %d days on %v, want 4 days on %v", got.DaysToHarvest, got.HarvestDate, want)
	}
}
