package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/logging"
)

// Client talks to the external symptom-triage advisory service over HTTP.
// The service is a separate long-running process; this client only polls
// its health and asks for specialty suggestions. Construct it once in the
// bootstrap and inject it where needed.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a triage client from configuration.
func NewClient(cfg config.TriageConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// Healthy reports whether the advisory service is up with its model loaded.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return false
	}
	return health.Status == "healthy" && health.ModelLoaded
}

// WaitReady polls the health endpoint once per second until the service is
// ready, the attempts run out, or the context is cancelled. The caller
// decides whether an unready service is fatal; bookings work without it.
func (c *Client) WaitReady(ctx context.Context, maxAttempts int) error {
	for i := 0; i < maxAttempts; i++ {
		if c.Healthy(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("triage service not ready after %d attempts", maxAttempts)
}

type predictRequest struct {
	Symptoms string `json:"symptoms"`
}

type predictResponse struct {
	Prediction struct {
		RecommendedSpecialty string  `json:"recommendedSpecialty"`
		Confidence           float64 `json:"confidence"`
	} `json:"prediction"`
}

// Suggest asks the advisory service which specialty fits the symptoms.
// Confidence is clamped to [0,1]. Errors mean "no hint", never a failed
// booking.
func (c *Client) Suggest(ctx context.Context, symptoms string) (string, float64, error) {
	payload, err := json.Marshal(predictRequest{Symptoms: symptoms})
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("triage service returned status %d", resp.StatusCode)
	}

	var prediction predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", 0, err
	}

	specialty := prediction.Prediction.RecommendedSpecialty
	if specialty == "" {
		specialty = "General Practice"
	}
	confidence := prediction.Prediction.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	logging.L.Debug("triage suggestion received",
		zap.String("specialty", specialty), zap.Float64("confidence", confidence))
	return specialty, confidence, nil
}
