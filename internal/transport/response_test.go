package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapdetail-backend/internal/apperr"
)

func TestWriteAppErrorStorageIsRetryable(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, fmt.Errorf("slots: %w", apperr.Storage(errors.New("timeout"))))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Retryable)
	assert.Equal(t, "storage unavailable", body.Error)
}

func TestWriteAppErrorCarriesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, apperr.WithDetails(apperr.InvalidConfiguration, "invalid availability", map[string]string{"bufferMinutes": "gte"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "gte", body.Details["bufferMinutes"])
	assert.False(t, body.Retryable)
}

func TestWriteAppErrorHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, errors.New("mongo: secret connection string"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}
