package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrSRSNotConfigured is returned (as a permanent error) when SRS_URL or
// SRS_PASSWORD is missing.
var ErrSRSNotConfigured = errors.New("srs url or password not configured")

// SRSClient posts event payloads to the SRS HTTP API with bearer auth.
type SRSClient struct {
	BaseURL  string
	Password string
	HTTP     *http.Client
	Log      *slog.Logger
}

// NewSRSClient returns a client whose requests time out after timeout.
func NewSRSClient(baseURL, password string, timeout time.Duration, log *slog.Logger) *SRSClient {
	return &SRSClient{
		BaseURL:  baseURL,
		Password: password,
		HTTP:     &http.Client{Timeout: timeout},
		Log:      log,
	}
}

// Deliver implements Deliverer. 4xx answers are permanent failures; network
// errors and 5xx answers are retryable.
func (c *SRSClient) Deliver(ctx context.Context, ev Event) error {
	if c.BaseURL == "" || c.Password == "" {
		c.Log.Error("srs delivery skipped", slog.String("event_id", ev.ID), slog.String("kind", string(ev.Kind)),
			slog.String("reason", ErrSRSNotConfigured.Error()))
		return Permanent(ErrSRSNotConfigured)
	}
	endpoint, err := ev.Kind.Endpoint()
	if err != nil {
		return Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+endpoint, bytes.NewReader(ev.Payload))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", ev.ID)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("srs %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.Log.Info("srs delivery ok", slog.String("event_id", ev.ID), slog.String("endpoint", endpoint))
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return Permanent(fmt.Errorf("srs %s: status %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(body)))
	default:
		return fmt.Errorf("srs %s: status %d: %s", endpoint, resp.StatusCode, bytes.TrimSpace(body))
	}
}
