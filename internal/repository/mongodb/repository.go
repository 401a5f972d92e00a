package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/pondwatch/internal/domain/models"
	"github.com/mamadbah2/pondwatch/internal/realtime"
	"github.com/mamadbah2/pondwatch/internal/repository"
)

const collDailyReports = "daily_reports"

// MongoDBRepository implements repository.Store on MongoDB. Collection names
// match the realtime table names.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri, dbName string, timeout time.Duration, logger *zap.Logger) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	if timeout > 0 {
		clientOptions.SetTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return New(client, dbName, logger), nil
}

// New wraps an existing client.
func New(client *mongo.Client, dbName string, logger *zap.Logger) *MongoDBRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
}

func (r *MongoDBRepository) coll(table realtime.Table) *mongo.Collection {
	return r.db.Collection(string(table))
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

// ListPonds returns the ponds visible to scope, newest first.
func (r *MongoDBRepository) ListPonds(ctx context.Context, scope repository.Scope) ([]models.Pond, error) {
	filter := bson.M{}
	if !scope.All {
		filter["user_id"] = scope.UserID
	}
	return find[models.Pond](ctx, r.coll(realtime.TablePonds), filter, newestFirst)
}

// ListFeedingSchedules returns the schedules of the ponds visible to scope.
func (r *MongoDBRepository) ListFeedingSchedules(ctx context.Context, scope repository.Scope) ([]models.FeedingSchedule, error) {
	filter, err := r.pondFilter(ctx, scope)
	if err != nil {
		return nil, err
	}
	return find[models.FeedingSchedule](ctx, r.coll(realtime.TableFeedingSchedules), filter, newestFirst)
}

// ListHealthRecords returns the health records of the ponds visible to scope.
func (r *MongoDBRepository) ListHealthRecords(ctx context.Context, scope repository.Scope) ([]models.HealthRecord, error) {
	filter, err := r.pondFilter(ctx, scope)
	if err != nil {
		return nil, err
	}
	return find[models.HealthRecord](ctx, r.coll(realtime.TableHealthRecords), filter, newestFirst)
}

// ListWaterQualityLogs returns the water logs of the ponds visible to scope.
func (r *MongoDBRepository) ListWaterQualityLogs(ctx context.Context, scope repository.Scope) ([]models.WaterQualityLog, error) {
	filter, err := r.pondFilter(ctx, scope)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}})
	return find[models.WaterQualityLog](ctx, r.coll(realtime.TableWaterQualityLogs), filter, opts)
}

// pondFilter restricts child collections to the scope's pond ids.
func (r *MongoDBRepository) pondFilter(ctx context.Context, scope repository.Scope) (bson.M, error) {
	if scope.All {
		return bson.M{}, nil
	}

	raw, err := r.coll(realtime.TablePonds).Distinct(ctx, "_id", bson.M{"user_id": scope.UserID})
	if err != nil {
		return nil, fmt.Errorf("list pond ids for user %s: %w", scope.UserID, err)
	}

	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return bson.M{"pond_id": bson.M{"$in": ids}}, nil
}

// GetPond loads one pond.
func (r *MongoDBRepository) GetPond(ctx context.Context, id string) (models.Pond, error) {
	return findOne[models.Pond](ctx, r.coll(realtime.TablePonds), id)
}

// InsertPond stores a new pond.
func (r *MongoDBRepository) InsertPond(ctx context.Context, pond models.Pond) error {
	if _, err := r.coll(realtime.TablePonds).InsertOne(ctx, pond); err != nil {
		return fmt.Errorf("failed to insert pond: %w", err)
	}
	return nil
}

// UpdatePond replaces a pond document.
func (r *MongoDBRepository) UpdatePond(ctx context.Context, pond models.Pond) error {
	res, err := r.coll(realtime.TablePonds).ReplaceOne(ctx, bson.M{"_id": pond.ID}, pond)
	if err != nil {
		return fmt.Errorf("failed to update pond %s: %w", pond.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("pond %s: %w", pond.ID, repository.ErrNotFound)
	}
	return nil
}

// DeletePond removes a pond and every record that references it.
func (r *MongoDBRepository) DeletePond(ctx context.Context, id string) error {
	res, err := r.coll(realtime.TablePonds).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete pond %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("pond %s: %w", id, repository.ErrNotFound)
	}

	for _, table := range []realtime.Table{realtime.TableFeedingSchedules, realtime.TableHealthRecords, realtime.TableWaterQualityLogs} {
		if _, err := r.coll(table).DeleteMany(ctx, bson.M{"pond_id": id}); err != nil {
			return fmt.Errorf("failed to delete %s of pond %s: %w", table, id, err)
		}
	}
	return nil
}

// GetFeedingSchedule loads one schedule.
func (r *MongoDBRepository) GetFeedingSchedule(ctx context.Context, id string) (models.FeedingSchedule, error) {
	return findOne[models.FeedingSchedule](ctx, r.coll(realtime.TableFeedingSchedules), id)
}

// InsertFeedingSchedule stores a new schedule.
func (r *MongoDBRepository) InsertFeedingSchedule(ctx context.Context, schedule models.FeedingSchedule) error {
	if _, err := r.coll(realtime.TableFeedingSchedules).InsertOne(ctx, schedule); err != nil {
		return fmt.Errorf("failed to insert feeding schedule: %w", err)
	}
	return nil
}

// UpdateFeedingStatus marks a schedule pending or completed.
func (r *MongoDBRepository) UpdateFeedingStatus(ctx context.Context, id string, status models.FeedingStatus) error {
	res, err := r.coll(realtime.TableFeedingSchedules).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to update feeding schedule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("feeding schedule %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DeleteFeedingSchedule removes a schedule.
func (r *MongoDBRepository) DeleteFeedingSchedule(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll(realtime.TableFeedingSchedules), id)
}

// GetHealthRecord loads one health record.
func (r *MongoDBRepository) GetHealthRecord(ctx context.Context, id string) (models.HealthRecord, error) {
	return findOne[models.HealthRecord](ctx, r.coll(realtime.TableHealthRecords), id)
}

// InsertHealthRecord stores a new health record.
func (r *MongoDBRepository) InsertHealthRecord(ctx context.Context, record models.HealthRecord) error {
	if _, err := r.coll(realtime.TableHealthRecords).InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert health record: %w", err)
	}
	return nil
}

// DeleteHealthRecord removes a health record.
func (r *MongoDBRepository) DeleteHealthRecord(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll(realtime.TableHealthRecords), id)
}

// InsertWaterQualityLog stores a new water quality log.
func (r *MongoDBRepository) InsertWaterQualityLog(ctx context.Context, log models.WaterQualityLog) error {
	if _, err := r.coll(realtime.TableWaterQualityLogs).InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert water quality log: %w", err)
	}
	return nil
}

// GetProfile loads a user profile.
func (r *MongoDBRepository) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	return findOne[models.Profile](ctx, r.coll(realtime.TableProfiles), id)
}

// FindProfileByPhone looks up the profile registered with a WhatsApp number.
func (r *MongoDBRepository) FindProfileByPhone(ctx context.Context, phone string) (models.Profile, error) {
	var p models.Profile
	err := r.coll(realtime.TableProfiles).FindOne(ctx, bson.M{"phone": phone}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return p, fmt.Errorf("profile with phone %s: %w", phone, repository.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("failed to find profile by phone: %w", err)
	}
	return p, nil
}

// ListProfiles returns every profile.
func (r *MongoDBRepository) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	return find[models.Profile](ctx, r.coll(realtime.TableProfiles), bson.M{}, options.Find())
}

// SaveDailyReport saves a daily report to the database.
func (r *MongoDBRepository) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	if _, err := r.db.Collection(collDailyReports).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert daily report: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func find[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, id string) (T, error) {
	var out T
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, fmt.Errorf("%s %s: %w", coll.Name(), id, repository.ErrNotFound)
	}
	if err != nil {
		return out, fmt.Errorf("find %s %s: %w", coll.Name(), id, err)
	}
	return out, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", coll.Name(), id, repository.ErrNotFound)
	}
	return nil
}
