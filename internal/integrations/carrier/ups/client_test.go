package ups

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := carriers.DefaultConfigs()[carriers.UPS]
	cfg.APIEndpoint = srv.URL
	return New(cfg, carriers.Credentials{ClientID: "id", ClientSecret: "secret"}), srv
}

func TestTrack_ParsesActivities(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "1Z999AA1234567890", req["inquiryNumber"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "trackResponse": {"shipment": [{"package": [{"activity": [
    {"status": {"description": "In Transit", "type": "I"},
     "location": {"address": {"city": "Memphis", "stateProvince": "TN"}},
     "date": "2025-06-01", "time": "12:30:45"},
    {"status": {"description": "Picked Up", "type": "P"},
     "location": {"address": {"city": "New York", "stateProvince": "NY"}},
     "date": "20250530", "time": "081500"}
  ]}]}]}
}`))
	})

	info, err := p.Track(context.Background(), " 1z999aa1234567890 ")
	require.NoError(t, err)
	require.Equal(t, "1Z999AA1234567890", info.TrackingNumber)
	require.Equal(t, "UPS", info.Carrier)
	require.Equal(t, models.TrackingStatusInTransit, info.Status)
	require.Len(t, info.Events, 2)
	require.Equal(t, "Memphis, TN", *info.Events[0].Location)
	require.Equal(t, time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC), info.Events[0].Timestamp)
	require.Equal(t, time.Date(2025, 5, 30, 8, 15, 0, 0, time.UTC), info.Events[1].Timestamp)
	require.Equal(t, info.Events[0].Timestamp, info.Timestamp)
}

func TestTrack_StatusTypeFallback(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
  "trackResponse": {"shipment": [{"package": [{"activity": [
    {"status": {"description": "", "type": "DELIVERED"}, "date": "2025-06-01", "time": "09:00:00"}
  ]}]}]}
}`))
	})

	info, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.NoError(t, err)
	require.Equal(t, "DELIVERED", info.Events[0].Status)
	require.Equal(t, models.TrackingStatusDelivered, info.Status)
	require.Nil(t, info.Events[0].Location)
}

func TestTrack_EmptyActivity(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trackResponse": {"shipment": [{"package": [{"activity": []}]}]}}`))
	})

	info, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.NoError(t, err)
	require.Len(t, info.Events, 1)
	require.Equal(t, "Unknown", info.Events[0].Status)
	require.Equal(t, "No tracking information available", *info.Events[0].Description)
}

func TestTrack_NotFound(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.Error(t, err)
	require.Equal(t, carrier.KindNotFound, carrier.KindOf(err))
}

func TestTrack_EmptyShipment(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trackResponse": {"shipment": []}}`))
	})

	_, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.Error(t, err)
	require.Equal(t, carrier.KindNotFound, carrier.KindOf(err))
}

func TestTrack_CarrierError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.Error(t, err)
	require.Equal(t, carrier.KindCarrier, carrier.KindOf(err))
}

func TestTrack_BadJSON(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := p.Track(context.Background(), "1Z999AA1234567890")
	require.Error(t, err)
	require.Equal(t, carrier.KindBadResponse, carrier.KindOf(err))
}
