package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/db"
	"tapdetail-backend/internal/schedule"
)

var (
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidDuration = errors.New("duration must fit in one day")
)

// Menu manages a provider's services.
type Menu struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
}

func NewMenu(repo Repository, location *time.Location) *Menu {
	if location == nil {
		location = time.UTC
	}
	return &Menu{repo: repo, location: location, now: time.Now}
}

func (m *Menu) List(ctx context.Context, providerID string) ([]Service, error) {
	var items []Service
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		items, err = m.repo.ListByProvider(ctx, strings.TrimSpace(providerID))
		return err
	})
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return items, nil
}

// Get returns the service, scoped to providerID when one is given.
func (m *Menu) Get(ctx context.Context, providerID, id string) (Service, error) {
	var item Service
	err := db.Retry(ctx, func(ctx context.Context) error {
		var err error
		item, err = m.repo.Get(ctx, strings.TrimSpace(id))
		return err
	})
	if errors.Is(err, ErrNotFound) || (err == nil && providerID != "" && item.ProviderID != providerID) {
		return Service{}, apperr.Wrap(apperr.NotFound, "service not found", ErrNotFound)
	}
	if err != nil {
		return Service{}, apperr.Storage(err)
	}
	return item, nil
}

func (m *Menu) Create(ctx context.Context, providerID string, req ServiceRequest) (Service, error) {
	now := m.now().In(m.location)
	item := Service{
		ID:         primitive.NewObjectID().Hex(),
		ProviderID: strings.TrimSpace(providerID),
		CreatedAt:  now,
	}
	if err := apply(&item, req, now); err != nil {
		return Service{}, err
	}
	if err := m.repo.Create(ctx, item); err != nil {
		return Service{}, m.mapWriteError(err)
	}
	return item, nil
}

func (m *Menu) Update(ctx context.Context, providerID, id string, req ServiceRequest) (Service, error) {
	item, err := m.Get(ctx, providerID, id)
	if err != nil {
		return Service{}, err
	}
	if err := apply(&item, req, m.now().In(m.location)); err != nil {
		return Service{}, err
	}
	if err := m.repo.Replace(ctx, item); err != nil {
		return Service{}, m.mapWriteError(err)
	}
	return item, nil
}

func (m *Menu) Delete(ctx context.Context, providerID, id string) error {
	if err := m.repo.Delete(ctx, strings.TrimSpace(providerID), strings.TrimSpace(id)); err != nil {
		return m.mapWriteError(err)
	}
	return nil
}

func (m *Menu) mapWriteError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.Wrap(apperr.NotFound, "service not found", err)
	case errors.Is(err, ErrSlugTaken):
		return apperr.WithDetails(apperr.InvalidConfiguration, "service name already used", map[string]string{"name": "unique"})
	default:
		return apperr.Storage(err)
	}
}

func apply(item *Service, req ServiceRequest, now time.Time) error {
	unit := strings.ToLower(strings.TrimSpace(req.DurationUnit))
	if unit == "" {
		unit = UnitMinutes
	}
	if req.Price.IsNegative() {
		return apperr.Wrap(apperr.InvalidConfiguration, "invalid price", ErrInvalidPrice)
	}

	item.Name = strings.TrimSpace(req.Name)
	item.Slug = Slug(item.Name)
	item.Description = strings.TrimSpace(req.Description)
	item.Price = req.Price.Round(2)
	item.Duration = req.Duration
	item.DurationUnit = unit
	item.UpdatedAt = now

	if minutes := item.DurationMinutes(); minutes <= 0 || minutes > schedule.MinutesPerDay {
		return apperr.Wrap(apperr.InvalidDuration, "invalid duration", ErrInvalidDuration)
	}
	return nil
}
