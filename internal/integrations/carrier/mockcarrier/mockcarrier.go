package mockcarrier

import (
	"context"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
)

// Provider is the degraded stand-in the registry installs when a real
// provider cannot be initialized. It serves the carrier's mock table and
// falls back to a generic synthetic record, so the carrier stays supported
// without credentials.
type Provider struct {
	*carrier.Base
}

func New(cfg carriers.Config) *Provider {
	// Credentials stay empty and auth is forced off: the mock keeps the
	// original carrier's name, mock table and status mapping, but never
	// looks live-capable.
	cfg.AuthType = carriers.AuthNone
	return &Provider{Base: carrier.NewBase(cfg, carriers.Credentials{})}
}

func (p *Provider) Track(ctx context.Context, trackingNumber string) (*models.TrackingInfo, error) {
	if info := p.MockData(trackingNumber); info != nil {
		return info, nil
	}
	return Synthetic(carriers.Normalize(trackingNumber), p.Config().Name, p.Now()), nil
}

// Synthetic builds the generic "nothing is known" record: one In Transit
// event with an unknown location. Also used by the resolver as the
// last-resort fallback.
func Synthetic(trackingNumber, carrierName string, now time.Time) *models.TrackingInfo {
	loc := "Unknown Location"
	desc := "Package information not available"
	ev := models.TrackingEvent{
		Status:      "In Transit",
		Location:    &loc,
		Timestamp:   now,
		Description: &desc,
	}
	return &models.TrackingInfo{
		TrackingNumber: trackingNumber,
		Carrier:        carrierName,
		Status:         models.TrackingStatusInTransit,
		Location:       &loc,
		Timestamp:      now,
		Description:    &desc,
		Events:         []models.TrackingEvent{ev},
	}
}
