package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Notification is the push payload. It mirrors the real-time envelope so a
// client can deep-link from either channel with the same fields.
type Notification struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	EventType string `json:"type"`
	JobID     string `json:"jobId"`
}

// Sender delivers one push notification to one device token. Delivery is
// best effort; the dispatcher retries a bounded number of times and then
// drops.
type Sender interface {
	Send(ctx context.Context, token string, n Notification) error
}

// HTTPSender posts notifications to a push provider's HTTP endpoint.
type HTTPSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

func NewHTTPSender(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPSender {
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type pushRequest struct {
	To       string            `json:"to"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data"`
	Priority string            `json:"priority"`
}

// Send posts one notification. Any non-2xx response is an error.
func (s *HTTPSender) Send(ctx context.Context, token string, n Notification) error {
	payload := pushRequest{
		To:    token,
		Title: n.Title,
		Body:  n.Body,
		Data: map[string]string{
			"type":  n.EventType,
			"jobId": n.JobID,
		},
		Priority: "high",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	return nil
}
