package repository

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// Fleet is one consistent-enough read of all four collections for a scope.
type Fleet struct {
	Ponds     []models.Pond
	Schedules []models.FeedingSchedule
	Health    []models.HealthRecord
	Water     []models.WaterQualityLog
}

// LoadFleet reads the four collections concurrently. The first failure
// cancels the other reads.
func LoadFleet(ctx context.Context, r Reader, scope Scope) (Fleet, error) {
	var f Fleet
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		f.Ponds, err = r.ListPonds(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		f.Schedules, err = r.ListFeedingSchedules(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		f.Health, err = r.ListHealthRecords(ctx, scope)
		return err
	})
	g.Go(func() (err error) {
		f.Water, err = r.ListWaterQualityLogs(ctx, scope)
		return err
	})

	if err := g.Wait(); err != nil {
		return Fleet{}, err
	}
	return f, nil
}
