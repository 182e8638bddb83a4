package availability

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tapdetail-backend/internal/schedule"
)

type Repository interface {
	Get(ctx context.Context, providerID string) (Document, bool, error)
	Upsert(ctx context.Context, providerID string, cfg schedule.Availability, now time.Time) error
	InsertIfAbsent(ctx context.Context, providerID string, cfg schedule.Availability, now time.Time) (bool, error)
	AddBlockedDate(ctx context.Context, providerID string, date schedule.Date, now time.Time) error
	RemoveBlockedDate(ctx context.Context, providerID string, date schedule.Date, now time.Time) error
	ProviderIDs(ctx context.Context) ([]string, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Get(ctx context.Context, providerID string) (Document, bool, error) {
	var doc Document
	err := r.col.FindOne(ctx, bson.M{"provider_id": providerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

func (r *MongoRepository) Upsert(ctx context.Context, providerID string, cfg schedule.Availability, now time.Time) error {
	doc := toDocument(providerID, cfg, now)
	update := bson.M{
		"$set": bson.M{
			"business_hours": doc.BusinessHours,
			"working_days":   doc.WorkingDays,
			"breaks":         doc.Breaks,
			"buffer_minutes": doc.BufferMinutes,
			"blocked_dates":  doc.BlockedDates,
			"timezone":       doc.Timezone,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"provider_id": providerID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoRepository) InsertIfAbsent(ctx context.Context, providerID string, cfg schedule.Availability, now time.Time) (bool, error) {
	doc := toDocument(providerID, cfg, now)
	res, err := r.col.UpdateOne(ctx,
		bson.M{"provider_id": providerID},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

func (r *MongoRepository) AddBlockedDate(ctx context.Context, providerID string, date schedule.Date, now time.Time) error {
	return r.updateExisting(ctx, providerID, bson.M{
		"$addToSet": bson.M{"blocked_dates": date.String()},
		"$set":      bson.M{"updated_at": now},
	})
}

func (r *MongoRepository) RemoveBlockedDate(ctx context.Context, providerID string, date schedule.Date, now time.Time) error {
	return r.updateExisting(ctx, providerID, bson.M{
		"$pull": bson.M{"blocked_dates": date.String()},
		"$set":  bson.M{"updated_at": now},
	})
}

func (r *MongoRepository) ProviderIDs(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "provider_id", bson.M{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MongoRepository) updateExisting(ctx context.Context, providerID string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"provider_id": providerID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
