package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgash22/voicebridge-ai-website/internal/config"
	"github.com/bgash22/voicebridge-ai-website/internal/upstream"
)

func newDHLServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dhl-key", r.Header.Get("DHL-API-Key"))
		assert.Equal(t, "1234567890", r.URL.Query().Get("trackingNumber"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDHLTrackerSuccess(t *testing.T) {
	srv := newDHLServer(t, http.StatusOK, `{
  "shipments": [{
    "id": "1234567890",
    "status": {"statusCode": "transit", "status": "transit", "description": "The shipment is on its way."},
    "estimatedTimeOfDelivery": "2026-10-20T18:00:00Z"
  }]
}`)

	tracker := NewDHLTracker(config.TrackingConfig{Endpoint: srv.URL, APIKey: "dhl-key", Timeout: 5})
	res, err := tracker.Track(context.Background(), "1234567890")
	require.NoError(t, err)

	assert.Equal(t, "1234567890", res.TrackingNumber)
	assert.Equal(t, "The shipment is on its way. Estimated delivery: 2026-10-20T18:00:00Z.", res.Status)
	assert.Equal(t, "DHL Shipment Tracking API", res.Source)
}

func TestDHLTrackerNotFound(t *testing.T) {
	srv := newDHLServer(t, http.StatusNotFound, `{"status":404,"title":"No result found"}`)

	tracker := NewDHLTracker(config.TrackingConfig{Endpoint: srv.URL, APIKey: "dhl-key", Timeout: 5})
	res, err := tracker.Track(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestDHLTrackerUpstreamError(t *testing.T) {
	srv := newDHLServer(t, http.StatusUnauthorized, `{"detail":"Invalid API key"}`)

	tracker := NewDHLTracker(config.TrackingConfig{Endpoint: srv.URL, APIKey: "dhl-key", Timeout: 5})
	_, err := tracker.Track(context.Background(), "1234567890")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode(err))
	assert.Contains(t, upstream.Body(err), "Invalid API key")
}

func TestDHLTrackerMissingKey(t *testing.T) {
	tracker := NewDHLTracker(config.TrackingConfig{Timeout: 5})
	_, err := tracker.Track(context.Background(), "1234567890")
	assert.ErrorIs(t, err, upstream.ErrMissingCredential)
}

func TestMockTracker(t *testing.T) {
	res, err := MockTracker{}.Track(context.Background(), "001")
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, res.Status)

	res, err = MockTracker{}.Track(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
}
