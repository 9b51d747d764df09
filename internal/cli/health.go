package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultHealthTimeout bounds a status probe.
const DefaultHealthTimeout = 5 * time.Second

// Health is the body of the server's /health endpoint.
type Health struct {
	Status string  `json:"status"`
	Issuer *string `json:"issuer"`
}

// IssuerOrNone returns the issuer for display.
func (h *Health) IssuerOrNone() string {
	if h.Issuer == nil || *h.Issuer == "" {
		return "(none)"
	}
	return *h.Issuer
}

// CheckHealth probes healthURL. Transport failures come back as a
// *ConnectionError; a nil client uses a client with DefaultHealthTimeout.
func CheckHealth(ctx context.Context, client *http.Client, healthURL string) (*Health, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultHealthTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, ClassifyConnectionError(err, healthURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s answered with status %d", healthURL, resp.StatusCode)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("unexpected health response from %s: %w", healthURL, err)
	}
	return &h, nil
}
