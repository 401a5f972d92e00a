package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/realtime"
)

// NotifyingStore announces every successful write on a realtime.Publisher.
// It is used with the in-process hub and the Redis feed; change streams
// observe the database directly and need no announcements.
type NotifyingStore struct {
	Store
	publisher realtime.Publisher
	logger    *zap.Logger
}

// NewNotifyingStore wraps store.
func NewNotifyingStore(store Store, publisher realtime.Publisher, logger *zap.Logger) *NotifyingStore {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyingStore{Store: store, publisher: publisher, logger: logger}
}

func (s *NotifyingStore) announce(ctx context.Context, err error, tables ...realtime.Table) error {
	if err != nil {
		return err
	}
	for _, table := range tables {
		// The write already succeeded; subscribers still have their polling timer.
		if perr := s.publisher.Publish(ctx, table); perr != nil {
			s.logger.Warn("failed to announce change", zap.String("table", string(table)), zap.Error(perr))
		}
	}
	return nil
}

func (s *NotifyingStore) InsertPond(ctx context.Context, pond models.Pond) error {
	return s.announce(ctx, s.Store.InsertPond(ctx, pond), realtime.TablePonds)
}

func (s *NotifyingStore) UpdatePond(ctx context.Context, pond models.Pond) error {
	return s.announce(ctx, s.Store.UpdatePond(ctx, pond), realtime.TablePonds)
}

func (s *NotifyingStore) DeletePond(ctx context.Context, id string) error {
	return s.announce(ctx, s.Store.DeletePond(ctx, id),
		realtime.TablePonds, realtime.TableFeedingSchedules, realtime.TableHealthRecords, realtime.TableWaterQualityLogs)
}

func (s *NotifyingStore) InsertFeedingSchedule(ctx context.Context, schedule models.FeedingSchedule) error {
	return s.announce(ctx, s.Store.InsertFeedingSchedule(ctx, schedule), realtime.TableFeedingSchedules)
}

func (s *NotifyingStore) UpdateFeedingStatus(ctx context.Context, id string, status models.FeedingStatus) error {
	return s.announce(ctx, s.Store.UpdateFeedingStatus(ctx, id, status), realtime.TableFeedingSchedules)
}

func (s *NotifyingStore) DeleteFeedingSchedule(ctx context.Context, id string) error {
	return s.announce(ctx, s.Store.DeleteFeedingSchedule(ctx, id), realtime.TableFeedingSchedules)
}

func (s *NotifyingStore) InsertHealthRecord(ctx context.Context, record models.HealthRecord) error {
	return s.announce(ctx, s.Store.InsertHealthRecord(ctx, record), realtime.TableHealthRecords)
}

func (s *NotifyingStore) DeleteHealthRecord(ctx context.Context, id string) error {
	return s.announce(ctx, s.Store.DeleteHealthRecord(ctx, id), realtime.TableHealthRecords)
}

func (s *NotifyingStore) InsertWaterQualityLog(ctx context.Context, log models.WaterQualityLog) error {
	return s.announce(ctx, s.Store.InsertWaterQualityLog(ctx, log), realtime.TableWaterQualityLogs)
}
