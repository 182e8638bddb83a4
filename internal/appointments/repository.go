package appointments

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"tapdetail-backend/internal/schedule"
)

var (
	ErrNotFound      = errors.New("appointment not found")
	ErrSlotTaken     = errors.New("slot no longer available")
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

type Repository interface {
	ListActiveForDate(ctx context.Context, providerID string, date schedule.Date) ([]Appointment, error)
	// CreateIfFree inserts a unless it overlaps a break or an active appointment,
	// atomically with respect to other bookings for the same provider and date.
	// A repeated idempotency key returns the stored appointment and created=false.
	CreateIfFree(ctx context.Context, a Appointment, guard Guard) (stored Appointment, created bool, err error)
	Get(ctx context.Context, id string) (Appointment, error)
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to schedule.Status, now time.Time, deletedAt *time.Time) (Appointment, error)
	SetActualDuration(ctx context.Context, id string, minutes int, now time.Time) (Appointment, error)
	Delete(ctx context.Context, id string) (Appointment, error)
	ListStale(ctx context.Context, statuses []schedule.Status, updatedBefore time.Time, limit int64) ([]Appointment, error)
	MigrateStatuses(ctx context.Context, mapping map[string]schedule.Status) (int64, error)
}

type MongoRepository struct {
	col    *mongo.Collection
	days   *mongo.Collection
	client *mongo.Client
}

func NewRepository(col, bookingDays *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		col:    col,
		days:   bookingDays,
		client: col.Database().Client(),
	}
}

// activeStatusValues includes legacy spellings so unmigrated records still
// block their slots.
func activeStatusValues() []string {
	active := schedule.ActiveStatuses()
	out := make([]string, 0, len(active))
	for _, s := range active {
		out = append(out, string(s))
	}
	for legacy, canonical := range schedule.LegacyStatusMapping() {
		if canonical.Active() {
			out = append(out, legacy)
		}
	}
	return out
}

func statusSpellings(s schedule.Status) []string {
	out := []string{string(s)}
	for legacy, canonical := range schedule.LegacyStatusMapping() {
		if canonical == s {
			out = append(out, legacy)
		}
	}
	return out
}

func (r *MongoRepository) ListActiveForDate(ctx context.Context, providerID string, date schedule.Date) ([]Appointment, error) {
	return r.find(ctx, bson.M{
		"provider_id": providerID,
		"date":        date.String(),
		"status":      bson.M{"$in": activeStatusValues()},
	}, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
}

func (r *MongoRepository) CreateIfFree(ctx context.Context, a Appointment, guard Guard) (Appointment, bool, error) {
	doc, err := toDocument(a)
	if err != nil {
		return Appointment{}, false, err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return Appointment{}, false, err
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	type outcome struct {
		stored  Appointment
		created bool
	}

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if a.IdempotencyKey != "" {
			existing, err := r.findByIdempotencyKey(sc, a.ProviderID, a.IdempotencyKey)
			if err == nil {
				return outcome{stored: existing}, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}

		// Every booking for the day writes the same guard document, so two
		// concurrent transactions conflict and one of them is retried.
		_, err := r.days.UpdateOne(sc,
			bson.M{"provider_id": a.ProviderID, "date": a.Date.String()},
			bson.M{
				"$inc": bson.M{"version": 1},
				"$set": bson.M{"updated_at": a.CreatedAt},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return nil, err
		}

		existing, err := r.ListActiveForDate(sc, a.ProviderID, a.Date)
		if err != nil {
			return nil, err
		}
		if !Fits(a, existing, guard) {
			return nil, ErrSlotTaken
		}

		if _, err := r.col.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		return outcome{stored: a, created: true}, nil
	}, txnOpts)

	if err != nil {
		if a.IdempotencyKey != "" && mongo.IsDuplicateKeyError(err) {
			existing, findErr := r.findByIdempotencyKey(ctx, a.ProviderID, a.IdempotencyKey)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return Appointment{}, false, err
	}

	out := result.(outcome)
	return out.stored, out.created, nil
}

func (r *MongoRepository) findByIdempotencyKey(ctx context.Context, providerID, key string) (Appointment, error) {
	return r.findOne(ctx, bson.M{"provider_id": providerID, "idempotency_key": key})
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Appointment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	query := bson.M{"provider_id": filter.ProviderID}
	switch {
	case !filter.Date.IsZero():
		query["date"] = filter.Date.String()
	case !filter.From.IsZero():
		query["date"] = bson.M{"$gte": filter.From.String()}
	}
	if filter.Status != "" {
		query["status"] = bson.M{"$in": statusSpellings(filter.Status)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts.SetSkip(filter.Offset)
	}
	return r.find(ctx, query, opts)
}

func (r *MongoRepository) UpdateStatus(ctx context.Context, id string, from, to schedule.Status, now time.Time, deletedAt *time.Time) (Appointment, error) {
	set := bson.M{
		"status":     string(to),
		"updated_at": now,
	}
	if deletedAt != nil {
		set["deleted_at"] = *deletedAt
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc document
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": bson.M{"$in": statusSpellings(from)}}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, ErrStatusChanged
	}
	if err != nil {
		return Appointment{}, err
	}
	return doc.toAppointment()
}

func (r *MongoRepository) SetActualDuration(ctx context.Context, id string, minutes int, now time.Time) (Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"actual_duration": minutes, "updated_at": now}}

	var doc document
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, err
	}
	return doc.toAppointment()
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (Appointment, error) {
	var doc document
	err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, err
	}
	return doc.toAppointment()
}

func (r *MongoRepository) ListStale(ctx context.Context, statuses []schedule.Status, updatedBefore time.Time, limit int64) ([]Appointment, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, statusSpellings(s)...)
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return r.find(ctx, bson.M{
		"status":     bson.M{"$in": values},
		"updated_at": bson.M{"$lt": updatedBefore},
	}, opts)
}

func (r *MongoRepository) MigrateStatuses(ctx context.Context, mapping map[string]schedule.Status) (int64, error) {
	var total int64
	for legacy, canonical := range mapping {
		res, err := r.col.UpdateMany(ctx,
			bson.M{"status": legacy},
			bson.M{"$set": bson.M{"status": string(canonical)}},
		)
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (Appointment, error) {
	var doc document
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return doc.toAppointment()
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Appointment, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Appointment, 0)
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		a, err := doc.toAppointment()
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
