package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tapdetail-backend/internal/db"
)

const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
)

// Service is one entry of a provider's menu.
type Service struct {
	ID           string          `json:"id"`
	ProviderID   string          `json:"providerId"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Duration     int             `json:"duration"`
	DurationUnit string          `json:"durationUnit"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// DurationMinutes normalizes the menu duration; hours are the only other unit.
func (s Service) DurationMinutes() int {
	if s.DurationUnit == UnitHours {
		return s.Duration * 60
	}
	return s.Duration
}

type document struct {
	ID           string               `bson:"_id"`
	ProviderID   string               `bson:"provider_id"`
	Name         string               `bson:"name"`
	Slug         string               `bson:"slug"`
	Description  string               `bson:"description,omitempty"`
	Price        primitive.Decimal128 `bson:"price"`
	Duration     int                  `bson:"duration"`
	DurationUnit string               `bson:"duration_unit"`
	CreatedAt    time.Time            `bson:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at"`
}

func toDocument(s Service) (document, error) {
	price, err := db.ToDecimal128(s.Price)
	if err != nil {
		return document{}, err
	}
	return document{
		ID:           s.ID,
		ProviderID:   s.ProviderID,
		Name:         s.Name,
		Slug:         s.Slug,
		Description:  s.Description,
		Price:        price,
		Duration:     s.Duration,
		DurationUnit: s.DurationUnit,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}, nil
}

func (d document) toService() (Service, error) {
	price, err := db.FromDecimal128(d.Price)
	if err != nil {
		return Service{}, err
	}
	unit := d.DurationUnit
	if unit == "" {
		unit = UnitMinutes
	}
	return Service{
		ID:           d.ID,
		ProviderID:   d.ProviderID,
		Name:         d.Name,
		Slug:         d.Slug,
		Description:  d.Description,
		Price:        price,
		Duration:     d.Duration,
		DurationUnit: unit,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type ServiceRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Description  string          `json:"description" validate:"max=2000"`
	Price        decimal.Decimal `json:"price"`
	Duration     int             `json:"duration" validate:"required,gt=0"`
	DurationUnit string          `json:"durationUnit" validate:"omitempty,durationunit"`
}
