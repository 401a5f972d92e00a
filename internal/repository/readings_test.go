package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/repository/memory"
)

func TestRecordWaterQuality(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 10, 16, 7, 0, 0, 0, time.UTC)

	testCases := map[string]struct {
		existing []models.WaterQualityLog
		log      models.WaterQualityLog
		wantTemp float64
		wantPH   float64
	}{
		"temperature only keeps pH": {
			log:      models.WaterQualityLog{ID: "w1", PondID: "p1", Temperature: models.Float(31.5), RecordedAt: at},
			wantTemp: 31.5,
			wantPH:   7,
		},
		"both readings": {
			log:      models.WaterQualityLog{ID: "w1", PondID: "p1", Temperature: models.Float(27), PH: models.Float(8.1), RecordedAt: at},
			wantTemp: 27,
			wantPH:   8.1,
		},
		"oxygen only leaves the pond alone": {
			log:      models.WaterQualityLog{ID: "w1", PondID: "p1", DissolvedOxygen: models.Float(5), RecordedAt: at},
			wantTemp: 28,
			wantPH:   7,
		},
		"backdated log is kept but does not override": {
			existing: []models.WaterQualityLog{{ID: "w0", PondID: "p1", Temperature: models.Float(28), RecordedAt: at}},
			log:      models.WaterQualityLog{ID: "w1", PondID: "p1", Temperature: models.Float(22), PH: models.Float(9), RecordedAt: at.Add(-24 * time.Hour)},
			wantTemp: 28,
			wantPH:   7,
		},
		"newer than another pond's log": {
			existing: []models.WaterQualityLog{{ID: "w0", PondID: "p2", RecordedAt: at.Add(time.Hour)}},
			log:      models.WaterQualityLog{ID: "w1", PondID: "p1", Temperature: models.Float(29), RecordedAt: at},
			wantTemp: 29,
			wantPH:   7,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			store := memory.New()
			pond := models.Pond{ID: "p1", UserID: "u1", WaterTemperature: models.Float(28), PHLevel: models.Float(7)}
			if err := store.InsertPond(ctx, pond); err != nil {
				t.Fatal(err)
			}
			_ = store.InsertPond(ctx, models.Pond{ID: "p2", UserID: "u1"})
			for _, l := range tc.existing {
				_ = store.InsertWaterQualityLog(ctx, l)
			}

			if err := repository.RecordWaterQuality(ctx, store, pond, tc.log); err != nil {
				t.Fatal(err)
			}

			logs, _ := store.ListWaterQualityLogs(ctx, repository.Scope{All: true})
			if want := len(tc.existing) + 1; len(logs) != want {
				t.Fatalf("stored %d logs, want %d", len(logs), want)
			}
			got, err := store.GetPond(ctx, "p1")
			if err != nil {
				t.Fatal(err)
			}
			if *got.WaterTemperature != tc.wantTemp || *got.PHLevel != tc.wantPH {
				t.Errorf("pond readings = %v/%v, want %v/%v", *got.WaterTemperature, *got.PHLevel, tc.wantTemp, tc.wantPH)
			}
		})
	}
}

func TestRecordWaterQualityReadFailure(t *testing.T) {
	store := memory.New()
	store.FailReads(errors.New("timeout"))

	err := repository.RecordWaterQuality(context.Background(), store, models.Pond{ID: "p1", UserID: "u1"},
		models.WaterQualityLog{ID: "w1", PondID: "p1", Temperature: models.Float(29)})
	if err == nil {
		t.Fatal("expected the read failure to be reported")
	}
	store.FailReads(nil)
	if logs, _ := store.ListWaterQualityLogs(context.Background(), repository.Scope{All: true}); len(logs) != 0 {
		t.Errorf("log stored despite the failure: %+v", logs)
	}
}

func TestRecordWaterQualityUnknownPond(t *testing.T) {
	store := memory.New()
	err := repository.RecordWaterQuality(context.Background(), store, models.Pond{ID: "ghost"},
		models.WaterQualityLog{ID: "w1", PondID: "ghost", Temperature: models.Float(29)})
	if err == nil {
		t.Fatal("expected the pond update to fail")
	}
}
