package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

// Tracking statuses reported by MockTracker.
const (
	StatusInTransit = "Package in transit. Expected delivery in 2-3 business days."
	StatusNotFound  = "Tracking number not found or invalid format."

	mockSource = "Mock Tracking (Demo)"
	dhlSource  = "DHL Shipment Tracking API"

	// DefaultDHLEndpoint is the unified shipment tracking endpoint.
	DefaultDHLEndpoint = "https://api-eu.dhl.com/track/shipments"
)

// TrackingResult is derived per request and never stored.
type TrackingResult struct {
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
	Source         string `json:"source"`
}

// Tracker resolves a cleaned, digits-only tracking number.
type Tracker interface {
	Track(ctx context.Context, trackingNumber string) (TrackingResult, error)
}

// MockTracker returns canned statuses without contacting a carrier.
type MockTracker struct{}

// Track implements Tracker. Numbers starting with "00" or at least ten
// digits long are reported in transit.
func (MockTracker) Track(_ context.Context, trackingNumber string) (TrackingResult, error) {
	status := StatusNotFound
	if strings.HasPrefix(trackingNumber, "00") || len(trackingNumber) >= 10 {
		status = StatusInTransit
	}
	return TrackingResult{
		TrackingNumber: trackingNumber,
		Status:         status,
		Source:         mockSource,
	}, nil
}

// DHLTracker queries the DHL shipment tracking REST API.
type DHLTracker struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewDHLTracker creates a tracker from configuration.
func NewDHLTracker(cfg config.TrackingConfig) *DHLTracker {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultDHLEndpoint
	}
	timeout := cfg.GetTimeoutDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DHLTracker{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type dhlResponse struct {
	Shipments []struct {
		ID     string `json:"id"`
		Status struct {
			StatusCode  string `json:"statusCode"`
			Status      string `json:"status"`
			Description string `json:"description"`
		} `json:"status"`
		EstimatedTimeOfDelivery string `json:"estimatedTimeOfDelivery"`
	} `json:"shipments"`
}

// Track implements Tracker. An unknown shipment yields StatusNotFound rather
// than an error.
func (t *DHLTracker) Track(ctx context.Context, trackingNumber string) (TrackingResult, error) {
	if t.apiKey == "" {
		return TrackingResult{}, upstream.MissingCredential("dhl", config.EnvDHLAPIKey)
	}

	u := t.endpoint + "?" + url.Values{"trackingNumber": {trackingNumber}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return TrackingResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("DHL-API-Key", t.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return TrackingResult{}, &upstream.Error{Provider: "dhl", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TrackingResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return TrackingResult{TrackingNumber: trackingNumber, Status: StatusNotFound, Source: dhlSource}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return TrackingResult{}, &upstream.Error{Provider: "dhl", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed dhlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return TrackingResult{}, fmt.Errorf("failed to parse tracking response: %w", err)
	}
	if len(parsed.Shipments) == 0 {
		return TrackingResult{TrackingNumber: trackingNumber, Status: StatusNotFound, Source: dhlSource}, nil
	}

	shipment := parsed.Shipments[0]
	status := shipment.Status.Description
	if status == "" {
		status = shipment.Status.Status
	}
	if shipment.EstimatedTimeOfDelivery != "" {
		status = fmt.Sprintf("%s. Estimated delivery: %s.", strings.TrimSuffix(status, "."), shipment.EstimatedTimeOfDelivery)
	}
	return TrackingResult{TrackingNumber: trackingNumber, Status: status, Source: dhlSource}, nil
}
