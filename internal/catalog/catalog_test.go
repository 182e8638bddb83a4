package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapdetail-backend/internal/apperr"
	"tapdetail-backend/internal/middleware"
	"tapdetail-backend/internal/validation"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Service
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]Service)}
}

func (m *memoryRepo) slugTaken(s Service) bool {
	for _, other := range m.items {
		if other.ID != s.ID && other.ProviderID == s.ProviderID && other.Slug == s.Slug {
			return true
		}
	}
	return false
}

func (m *memoryRepo) Create(ctx context.Context, s Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(s) {
		return ErrSlugTaken
	}
	m.items[s.ID] = s
	return nil
}

func (m *memoryRepo) Replace(ctx context.Context, s Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[s.ID]; !ok || existing.ProviderID != s.ProviderID {
		return ErrNotFound
	}
	if m.slugTaken(s) {
		return ErrSlugTaken
	}
	m.items[s.ID] = s
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, providerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[id]; !ok || existing.ProviderID != providerID {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return Service{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryRepo) ListByProvider(ctx context.Context, providerID string) ([]Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Service, 0)
	for _, s := range m.items {
		if s.ProviderID == providerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 90, Service{Duration: 90, DurationUnit: UnitMinutes}.DurationMinutes())
	assert.Equal(t, 120, Service{Duration: 2, DurationUnit: UnitHours}.DurationMinutes())
}

func TestMenuCreateNormalizes(t *testing.T) {
	menu := NewMenu(newMemoryRepo(), nil)
	item, err := menu.Create(context.Background(), "p1", ServiceRequest{
		Name:         "  Full Interior & Exterior ",
		Price:        decimal.RequireFromString("149.999"),
		Duration:     3,
		DurationUnit: "Hours",
	})
	require.NoError(t, err)

	assert.Equal(t, "full-interior-and-exterior", item.Slug)
	assert.Equal(t, "150", item.Price.String())
	assert.Equal(t, 180, item.DurationMinutes())
	assert.NotEmpty(t, item.ID)
}

func TestMenuRejectsBadInput(t *testing.T) {
	menu := NewMenu(newMemoryRepo(), nil)

	_, err := menu.Create(context.Background(), "p1", ServiceRequest{Name: "Wash", Price: decimal.NewFromInt(-1), Duration: 30})
	assert.True(t, apperr.Is(err, apperr.InvalidConfiguration))

	_, err = menu.Create(context.Background(), "p1", ServiceRequest{Name: "Wash", Price: decimal.NewFromInt(10), Duration: 25, DurationUnit: UnitHours})
	assert.True(t, apperr.Is(err, apperr.InvalidDuration))
}

func TestMenuScopesByProvider(t *testing.T) {
	menu := NewMenu(newMemoryRepo(), nil)
	item, err := menu.Create(context.Background(), "p1", ServiceRequest{Name: "Wash", Price: decimal.NewFromInt(40), Duration: 45})
	require.NoError(t, err)

	_, err = menu.Get(context.Background(), "p2", item.ID)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	_, err = menu.Update(context.Background(), "p2", item.ID, ServiceRequest{Name: "Steal", Duration: 10})
	assert.True(t, apperr.Is(err, apperr.NotFound))

	got, err := menu.Get(context.Background(), "", item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wash", got.Name)
}

func TestMenuDuplicateName(t *testing.T) {
	menu := NewMenu(newMemoryRepo(), nil)
	_, err := menu.Create(context.Background(), "p1", ServiceRequest{Name: "Wash", Duration: 45})
	require.NoError(t, err)

	_, err = menu.Create(context.Background(), "p1", ServiceRequest{Name: "wash", Duration: 30})
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "unique", appErr.Details["name"])
}

func TestHandlerCreateAndList(t *testing.T) {
	h := NewHandler(NewMenu(newMemoryRepo(), nil), validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Get("/providers/{providerId}/services", h.PublicList)
	r.Post("/provider/services", h.Create)

	body := `{"name": "Ceramic Coating", "price": "499.00", "duration": 4, "durationUnit": "hours"}`
	req := httptest.NewRequest(http.MethodPost, "/provider/services", strings.NewReader(body))
	req = req.WithContext(middleware.WithProviderID(req.Context(), "p1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers/p1/services", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Services []Service `json:"services"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "ceramic-coating", resp.Services[0].Slug)
	assert.True(t, decimal.RequireFromString("499").Equal(resp.Services[0].Price))
}

func TestHandlerCreateValidation(t *testing.T) {
	h := NewHandler(NewMenu(newMemoryRepo(), nil), validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodPost, "/provider/services", strings.NewReader(`{"name": "", "duration": 30, "durationUnit": "days"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Name":"required"`)
	assert.Contains(t, rec.Body.String(), `"DurationUnit":"durationunit"`)
}
