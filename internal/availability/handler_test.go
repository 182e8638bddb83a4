package availability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapdetail-backend/internal/cache"
	"tapdetail-backend/internal/validation"
)

func newTestRouter(repo Repository, store cache.Cache) http.Handler {
	h := NewHandler(newTestService(repo), validation.New(), discardLogger(), store)
	r := chi.NewRouter()
	r.Get("/providers/{providerId}/availability", h.Get)
	r.Put("/providers/{providerId}/availability", h.Update)
	r.Post("/providers/{providerId}/availability/blocked-dates/{date}", h.BlockDate)
	r.Delete("/providers/{providerId}/availability/blocked-dates/{date}", h.UnblockDate)
	return r
}

func TestHandlerUpdateAndGet(t *testing.T) {
	store := cache.NewMemory(time.Minute)
	require.NoError(t, store.Set(context.Background(), cache.SlotsKey("p1", "2026-02-02", 60), []byte("[]"), time.Minute))
	router := newTestRouter(newMemoryRepo(), store)

	body := `{
		"businessHours": {"monday": {"start": "08:00", "end": "16:00"}, "tuesday": {"start": "10:00", "end": "24:00"}},
		"workingDays": ["monday", "tuesday"],
		"breaks": [{"day": "monday", "start": "12:00", "end": "12:30"}],
		"bufferMinutes": 10,
		"blockedDates": ["2026-02-16"],
		"timezone": "America/New_York"
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/providers/p1/availability", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, ok, _ := store.Get(context.Background(), cache.SlotsKey("p1", "2026-02-02", 60))
	assert.False(t, ok, "slot cache must be invalidated")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers/p1/availability", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		BusinessHours map[string]map[string]string `json:"businessHours"`
		WorkingDays   []string                     `json:"workingDays"`
		BufferMinutes int                          `json:"bufferMinutes"`
		Timezone      string                       `json:"timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "24:00", got.BusinessHours["tuesday"]["end"])
	assert.Equal(t, []string{"monday", "tuesday"}, got.WorkingDays)
	assert.Equal(t, 10, got.BufferMinutes)
	assert.Equal(t, "America/New_York", got.Timezone)
}

func TestHandlerUpdateValidation(t *testing.T) {
	router := newTestRouter(newMemoryRepo(), nil)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"unknown weekday key", `{"businessHours": {"funday": {"start": "08:00", "end": "16:00"}}}`, "BusinessHours[funday]"},
		{"bad clock", `{"businessHours": {"monday": {"start": "8am", "end": "16:00"}}}`, "Start"},
		{"negative buffer", `{"businessHours": {"monday": {"start": "08:00", "end": "16:00"}}, "bufferMinutes": -1}`, "BufferMinutes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/providers/p1/availability", strings.NewReader(tc.body)))
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Details, tc.field)
		})
	}
}

func TestHandlerUpdateRejectsBreakOutsideHours(t *testing.T) {
	router := newTestRouter(newMemoryRepo(), nil)
	body := `{
		"businessHours": {"monday": {"start": "09:00", "end": "17:00"}},
		"workingDays": ["monday"],
		"breaks": [{"day": "monday", "start": "16:30", "end": "17:30"}]
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/providers/p1/availability", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "within_hours")
}

func TestHandlerBlockedDates(t *testing.T) {
	router := newTestRouter(newMemoryRepo(), nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/providers/p1/availability/blocked-dates/2026-03-14", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-03-14")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/providers/p1/availability/blocked-dates/14-03-2026", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/providers/p1/availability/blocked-dates/2026-03-14", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "2026-03-14")
}

func TestHandlerStorageFailureIsRetryable(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = context.DeadlineExceeded
	router := newTestRouter(repo, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/providers/p1/availability", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"retryable":true`)
}

func TestHandlerUpdateRejectsMidnightClose(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo, nil)
	body := `{
		"businessHours": {"monday": {"start": "09:00", "end": "00:00"}},
		"workingDays": ["monday"]
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/providers/p1/availability", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "start_before_end")
	assert.Zero(t, repo.writes)
}
