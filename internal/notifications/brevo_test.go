package notifications

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/schedule"
)

func sampleAppointment() appointments.Appointment {
	price := decimal.RequireFromString("45.5")
	return appointments.Appointment{
		ID:                "appt-1",
		ServiceName:       "Full wash",
		ClientName:        "Ada",
		ClientEmail:       "ada@example.com",
		Date:              schedule.Date{Year: 2026, Month: 2, Day: 3},
		Time:              schedule.NewClock(14, 30),
		Timezone:          "UTC",
		EstimatedDuration: 60,
		Price:             &price,
		Status:            schedule.StatusPending,
	}
}

func TestNewBrevoClientDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewBrevoClient("", "sender@example.com", "", false, time.UTC))
	assert.Nil(t, NewBrevoClient("key", " ", "", false, time.UTC))
}

func TestSendBookingConfirmation(t *testing.T) {
	var got brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<msg-1>"}`))
	}))
	defer srv.Close()

	client := NewBrevoClient("secret", "shop@example.com", "Tap Detail", true, time.UTC)
	require.NotNil(t, client)
	client.endpoint = srv.URL

	id, err := client.SendBookingConfirmation(context.Background(), sampleAppointment())
	require.NoError(t, err)
	assert.Equal(t, "<msg-1>", id)

	assert.Equal(t, "Booking received - Full wash", got.Subject)
	assert.Equal(t, "drop", got.Headers["X-Sib-Sandbox"])
	require.Len(t, got.To, 1)
	assert.Equal(t, "ada@example.com", got.To[0].Email)
	assert.Contains(t, got.HtmlContent, "Tuesday, February 3, 2026 at 2:30 PM")
	assert.Contains(t, got.HtmlContent, "45.50")

	assert.Equal(t, []string{"booking-confirmation"}, got.Tags)
	require.Len(t, got.Attachment, 1)
	invite, err := base64.StdEncoding.DecodeString(got.Attachment[0].Content)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(invite), "BEGIN:VEVENT"))
}

func TestSendBookingConfirmationReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad sender", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewBrevoClient("secret", "shop@example.com", "", false, time.UTC)
	client.endpoint = srv.URL
	client.retryWait = time.Millisecond

	_, err := client.SendBookingConfirmation(context.Background(), sampleAppointment())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=400")
}

func TestSendBookingConfirmationNeedsRecipient(t *testing.T) {
	client := NewBrevoClient("secret", "shop@example.com", "", false, time.UTC)
	a := sampleAppointment()
	a.ClientEmail = ""

	_, err := client.SendBookingConfirmation(context.Background(), a)
	assert.ErrorIs(t, err, ErrMissingRecipient)
}

func TestSendBookingConfirmationRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<msg-2>"}`))
	}))
	defer srv.Close()

	client := NewBrevoClient("secret", "shop@example.com", "", false, time.UTC)
	client.endpoint = srv.URL
	client.retryWait = time.Millisecond

	id, err := client.SendBookingConfirmation(context.Background(), sampleAppointment())
	require.NoError(t, err)
	assert.Equal(t, "<msg-2>", id)
	assert.Equal(t, int32(2), calls.Load())
}
