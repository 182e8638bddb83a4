package earnings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/schedule"
)

// Entry is the earning derived from one completed, priced appointment.
type Entry struct {
	AppointmentID string
	ProviderID    string
	ServiceName   string
	ClientName    string
	Date          schedule.Date
	Amount        decimal.Decimal
	RecordedAt    time.Time
}

type document struct {
	AppointmentID string               `bson:"appointment_id"`
	ProviderID    string               `bson:"provider_id"`
	ServiceName   string               `bson:"service_name,omitempty"`
	ClientName    string               `bson:"client_name,omitempty"`
	Date          string               `bson:"date"`
	Amount        primitive.Decimal128 `bson:"amount"`
	RecordedAt    time.Time            `bson:"recorded_at"`
}

func toDocument(e Entry) (document, error) {
	amount, err := db.ToDecimal128(e.Amount.Round(2))
	if err != nil {
		return document{}, err
	}
	return document{
		AppointmentID: e.AppointmentID,
		ProviderID:    e.ProviderID,
		ServiceName:   e.ServiceName,
		ClientName:    e.ClientName,
		Date:          e.Date.String(),
		Amount:        amount,
		RecordedAt:    e.RecordedAt,
	}, nil
}

type MongoLedger struct {
	col *mongo.Collection
}

func NewLedger(col *mongo.Collection) *MongoLedger {
	return &MongoLedger{col: col}
}

// Record upserts by appointment so a repeated completion never double counts.
func (l *MongoLedger) Record(ctx context.Context, e Entry) error {
	doc, err := toDocument(e)
	if err != nil {
		return err
	}
	_, err = l.col.ReplaceOne(ctx, bson.M{"appointment_id": e.AppointmentID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (l *MongoLedger) Remove(ctx context.Context, appointmentID string) error {
	_, err := l.col.DeleteOne(ctx, bson.M{"appointment_id": appointmentID})
	return err
}
