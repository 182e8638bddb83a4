package notifications

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tapdetail-backend/internal/appointments"
	"tapdetail-backend/internal/calendar"
)

const (
	defaultBrevoEndpoint = "https://api.brevo.com/v3/smtp/email"
	brevoMaxTries        = 3
)

var (
	ErrMissingRecipient = errors.New("missing recipient email")
	ErrEmptyMessage     = errors.New("message needs a subject and a body")
)

type BrevoClient struct {
	apiKey     string
	sender     brevoContact
	sandbox    bool
	endpoint   string
	httpClient *http.Client
	retryWait  time.Duration
	location   *time.Location
	now        func() time.Time
}

// NewBrevoClient returns nil when the API key or sender is missing, which
// disables confirmation e-mails.
func NewBrevoClient(apiKey, senderEmail, senderName string, sandbox bool, location *time.Location) *BrevoClient {
	senderEmail = strings.TrimSpace(senderEmail)
	if strings.TrimSpace(apiKey) == "" || senderEmail == "" {
		return nil
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = senderEmail
	}
	return &BrevoClient{
		apiKey:     apiKey,
		sender:     brevoContact{Email: senderEmail, Name: senderName},
		sandbox:    sandbox,
		endpoint:   defaultBrevoEndpoint,
		httpClient: &http.Client{Timeout: 8 * time.Second},
		retryWait:  300 * time.Millisecond,
		location:   location,
		now:        time.Now,
	}
}

// message is one transactional e-mail to a single client.
type message struct {
	to          brevoContact
	subject     string
	html        string
	tags        []string
	attachments []brevoAttachment
}

// SendBookingConfirmation mails the client a summary with the appointment as
// an .ics attachment and returns Brevo's message id.
func (c *BrevoClient) SendBookingConfirmation(ctx context.Context, a appointments.Appointment) (string, error) {
	subject := "Booking received"
	if a.ServiceName != "" {
		subject += " - " + a.ServiceName
	}
	html, err := buildBookingConfirmationHTML(a, c.location)
	if err != nil {
		return "", err
	}
	invite := calendar.Invite(a, c.location, c.now())

	return c.send(ctx, message{
		to:      brevoContact{Email: strings.TrimSpace(a.ClientEmail), Name: a.ClientName},
		subject: subject,
		html:    html,
		tags:    []string{"booking-confirmation"},
		attachments: []brevoAttachment{{
			Name:    "appointment.ics",
			Content: base64.StdEncoding.EncodeToString([]byte(invite)),
		}},
	})
}

func (c *BrevoClient) send(ctx context.Context, m message) (string, error) {
	if m.to.Email == "" {
		return "", ErrMissingRecipient
	}
	if strings.TrimSpace(m.subject) == "" || strings.TrimSpace(m.html) == "" {
		return "", ErrEmptyMessage
	}

	payload := brevoSendRequest{
		Sender:      c.sender,
		To:          []brevoContact{m.to},
		Subject:     m.subject,
		HtmlContent: m.html,
		Tags:        m.tags,
		Attachment:  m.attachments,
	}
	if c.sandbox {
		payload.Headers = map[string]string{"X-Sib-Sandbox": "drop"}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("brevo marshal payload: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryWait
	b := backoff.WithContext(backoff.WithMaxRetries(policy, brevoMaxTries-1), ctx)

	var messageID string
	err = backoff.Retry(func() error {
		var err error
		messageID, err = c.post(ctx, raw)
		return err
	}, b)
	return messageID, err
}

// post makes one delivery attempt. Only throttling and server errors are
// worth another attempt.
func (c *BrevoClient) post(ctx context.Context, raw []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("brevo create request: %w", err))
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("brevo send failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	var out struct {
		MessageID string `json:"messageId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("brevo decode response: %w", err))
	}
	if strings.TrimSpace(out.MessageID) == "" {
		return "", backoff.Permanent(errors.New("brevo response missing messageId"))
	}
	return out.MessageID, nil
}

type brevoSendRequest struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	Subject     string            `json:"subject"`
	HtmlContent string            `json:"htmlContent,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}
