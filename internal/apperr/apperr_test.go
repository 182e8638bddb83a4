package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("list appointments: %w", Storage(cause))

	assert.Equal(t, StorageFailure, KindOf(err))
	assert.True(t, Retryable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(KindOf(err)))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, Is(nil, NotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindOf(errors.New("boom"))))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		InvalidDate:           http.StatusBadRequest,
		OutsideWindow:         http.StatusBadRequest,
		InvalidConfiguration:  http.StatusBadRequest,
		InvalidTransition:     http.StatusConflict,
		SlotNoLongerAvailable: http.StatusConflict,
		NotFound:              http.StatusNotFound,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), string(kind))
	}
}
