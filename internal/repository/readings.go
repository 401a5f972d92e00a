package repository

import (
	"context"
	"fmt"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
)

// RecordWaterQuality stores a water log and, when it is the pond's newest,
// copies its temperature and pH onto the pond as the declared readings.
// Backdated logs and logs carrying neither reading leave the pond alone.
// Callers set pond.UpdatedAt.
func RecordWaterQuality(ctx context.Context, s Store, pond models.Pond, log models.WaterQualityLog) error {
	newest, err := isNewest(ctx, s, pond, log)
	if err != nil {
		return err
	}
	if err := s.InsertWaterQualityLog(ctx, log); err != nil {
		return fmt.Errorf("insert water log: %w", err)
	}
	if !newest || (log.Temperature == nil && log.PH == nil) {
		return nil
	}

	if log.Temperature != nil {
		pond.WaterTemperature = log.Temperature
	}
	if log.PH != nil {
		pond.PHLevel = log.PH
	}
	if err := s.UpdatePond(ctx, pond); err != nil {
		return fmt.Errorf("update pond %s readings: %w", pond.ID, err)
	}
	return nil
}

func isNewest(ctx context.Context, s Reader, pond models.Pond, log models.WaterQualityLog) (bool, error) {
	logs, err := s.ListWaterQualityLogs(ctx, Scope{UserID: pond.UserID})
	if err != nil {
		return false, fmt.Errorf("list water logs for pond %s: %w", pond.ID, err)
	}
	for _, l := range logs {
		if l.PondID == pond.ID && l.RecordedAt.After(log.RecordedAt) {
			return false, nil
		}
	}
	return true, nil
}
