package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sitepulse/internal/events"
)

// Transport delivers one collection payload.
type Transport interface {
	Send(ctx context.Context, payload *events.RawEvent) error
}

// DeliveryError is returned when the collector answers with a non-200 status.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("collector responded %d: %s", e.Status, e.Body)
}

// HTTPTransport posts JSON payloads to a collector's /api/events endpoint.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPTransport targets baseURL + "/api/events".
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: strings.TrimRight(baseURL, "/") + "/api/events",
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, payload *events.RawEvent) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return nil
}
