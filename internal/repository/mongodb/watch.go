package mongodb

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/realtime"
)

// ChangeStreams implements realtime.Notifier on MongoDB change streams.
// Change streams require a replica set; on a standalone server Subscribe
// fails and collections fall back to polling.
type ChangeStreams struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewChangeStreams watches collections of the repository's database.
func NewChangeStreams(repo *MongoDBRepository) *ChangeStreams {
	return &ChangeStreams{db: repo.db, logger: repo.logger}
}

// Subscribe opens a change stream on the table and calls onChange for every
// event, ignoring its payload.
func (c *ChangeStreams) Subscribe(ctx context.Context, table realtime.Table, onChange func()) (realtime.Subscription, error) {
	stream, err := c.db.Collection(string(table)).Watch(ctx, mongo.Pipeline{}, options.ChangeStream())
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", table, err)
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &watch{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		defer stream.Close(context.WithoutCancel(watchCtx))

		for stream.Next(watchCtx) {
			onChange()
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			c.logger.Warn("change stream ended", zap.String("table", string(table)), zap.Error(err))
		}
	}()

	return w, nil
}

type watch struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops the stream and waits for its goroutine.
func (w *watch) Close() error {
	w.once.Do(w.cancel)
	<-w.done
	return nil
}
