package catalog

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, s Service) error
	Replace(ctx context.Context, s Service) error
	Delete(ctx context.Context, providerID, id string) error
	Get(ctx context.Context, id string) (Service, error)
	ListByProvider(ctx context.Context, providerID string) ([]Service, error)
}

var (
	ErrNotFound  = errors.New("service not found")
	ErrSlugTaken = errors.New("service slug already exists")
)

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s Service) error {
	doc, err := toDocument(s)
	if err != nil {
		return err
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlugTaken
		}
		return err
	}
	return nil
}

func (r *MongoRepository) Replace(ctx context.Context, s Service) error {
	doc, err := toDocument(s)
	if err != nil {
		return err
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": s.ID, "provider_id": s.ProviderID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSlugTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, providerID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "provider_id": providerID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (Service, error) {
	var doc document
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Service{}, ErrNotFound
		}
		return Service{}, err
	}
	return doc.toService()
}

func (r *MongoRepository) ListByProvider(ctx context.Context, providerID string) ([]Service, error) {
	cursor, err := r.col.Find(ctx, bson.M{"provider_id": providerID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]Service, 0)
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		s, err := doc.toService()
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
