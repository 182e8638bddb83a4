package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingForm struct {
	Date     string `validate:"required,date"`
	Time     string `validate:"required,clock"`
	Phone    string `validate:"omitempty,phone"`
	Duration int    `validate:"omitempty,minutes15"`
}

type hoursForm struct {
	Day    string `validate:"required,weekday"`
	Closes string `validate:"required,closing"`
	Unit   string `validate:"required,durationunit"`
	Status string `validate:"omitempty,status"`
}

func failedTags(t *testing.T, v *Validator, s interface{}) map[string]string {
	t.Helper()
	err := v.Struct(s)
	if err == nil {
		return map[string]string{}
	}
	errs := v.ValidationErrors(err)
	require.NotNil(t, errs)
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = e.Tag()
	}
	return out
}

func TestBookingFormTags(t *testing.T) {
	v := New()

	assert.Empty(t, failedTags(t, v, bookingForm{Date: "2026-02-02", Time: "09:15", Phone: "+15551234567", Duration: 45}))

	got := failedTags(t, v, bookingForm{Date: "02/02/2026", Time: "24:00", Phone: "call me", Duration: 50})
	assert.Equal(t, map[string]string{
		"Date":     "date",
		"Time":     "clock",
		"Phone":    "phone",
		"Duration": "minutes15",
	}, got)
}

func TestScheduleTags(t *testing.T) {
	v := New()

	assert.Empty(t, failedTags(t, v, hoursForm{Day: "Mon", Closes: "24:00", Unit: "hours", Status: "in-progress"}))

	got := failedTags(t, v, hoursForm{Day: "someday", Closes: "25:00", Unit: "days", Status: "scheduled"})
	assert.Equal(t, "weekday", got["Day"])
	assert.Equal(t, "closing", got["Closes"])
	assert.Equal(t, "durationunit", got["Unit"])
	assert.Equal(t, "status", got["Status"])
}
