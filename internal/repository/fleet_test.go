package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/repository"
	"github.com/mamadbah2/pondwatch/internal/repository/memory"
)

func TestLoadFleet(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_ = store.InsertPond(ctx, models.Pond{ID: "p1", UserID: "u1"})
	_ = store.InsertPond(ctx, models.Pond{ID: "p2", UserID: "u2"})
	_ = store.InsertFeedingSchedule(ctx, models.FeedingSchedule{ID: "f1", PondID: "p1"})
	_ = store.InsertFeedingSchedule(ctx, models.FeedingSchedule{ID: "f2", PondID: "p2"})
	_ = store.InsertHealthRecord(ctx, models.HealthRecord{ID: "h1", PondID: "p2"})
	_ = store.InsertWaterQualityLog(ctx, models.WaterQualityLog{ID: "w1", PondID: "p1"})

	fleet, err := repository.LoadFleet(ctx, store, repository.Scope{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fleet.Ponds) != 1 || len(fleet.Schedules) != 1 || len(fleet.Health) != 0 || len(fleet.Water) != 1 {
		t.Errorf("farmer fleet not scoped: %+v", fleet)
	}

	all, err := repository.LoadFleet(ctx, store, repository.Scope{All: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(all.Ponds) != 2 || len(all.Schedules) != 2 || len(all.Health) != 1 {
		t.Errorf("admin fleet incomplete: %+v", all)
	}

	store.FailReads(errors.New("timeout"))
	if _, err := repository.LoadFleet(ctx, store, repository.Scope{All: true}); err == nil {
		t.Error("a failed read should fail the load")
	}
}
