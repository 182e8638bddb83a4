package handlers

import (
	"errors"
	"strconv"
	"strings"

	"tapdetail-backend/internal/httpx"
	"tapdetail-backend/internal/validation"
)

var errInvalidDuration = errors.New("invalid duration")

// parseDurationParam returns 0 when raw is empty so the caller can fall back
// to the service duration or the default.
func parseDurationParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 || minutes > 24*60 {
		return 0, errInvalidDuration
	}
	return minutes, nil
}

func validationDetails(val *validation.Validator, err error) map[string]string {
	return httpx.ValidationDetails(val.ValidationErrors(err))
}
