package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps request bodies; booking and configuration payloads are small.
const MaxBodyBytes = 64 << 10

var (
	ErrEmptyBody    = errors.New("request body is empty")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrTrailingData = errors.New("body must contain a single JSON object")
)

type limitedReader struct {
	r io.Reader
	n int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		return 0, ErrBodyTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}

// DecodeJSON decodes exactly one JSON object and rejects unknown fields.
func DecodeJSON(body io.Reader, v interface{}) error {
	if body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(&limitedReader{r: body, n: MaxBodyBytes + 1})
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if errors.Is(err, ErrBodyTooLarge) {
			return err
		}
		return ErrTrailingData
	}
	return nil
}

// ValidationDetails maps each failing field to its rule, with the rule
// parameter when there is one ("max=120").
func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		rule := err.Tag()
		if p := err.Param(); p != "" {
			rule += "=" + p
		}
		details[err.Field()] = rule
	}
	return details
}

type Page struct {
	Limit  int64
	Offset int64
}

// ParsePage reads limit and offset; limits above maxLimit are clamped.
func ParsePage(values url.Values, defaultLimit, maxLimit int64) (Page, error) {
	page := Page{Limit: defaultLimit}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return Page{}, errors.New("invalid limit")
		}
		page.Limit = parsed
	}
	if raw := strings.TrimSpace(values.Get("offset")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			return Page{}, errors.New("invalid offset")
		}
		page.Offset = parsed
	}

	if page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page, nil
}

// QueryBool treats anything strconv.ParseBool rejects as false.
func QueryBool(values url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(values.Get(key)))
	return err == nil && v
}
