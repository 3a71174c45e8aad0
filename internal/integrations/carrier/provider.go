package carrier

import (
	"context"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/models"
)

// Provider adapts one carrier's protocol and vocabulary to the normalized
// model. One instance per carrier lives inside the registry.
type Provider interface {
	// Initialize performs one-time setup (for oauth carriers: acquiring the
	// access token). The registry calls it once; a failure here makes the
	// registry substitute a mock provider, it never fails startup.
	Initialize(ctx context.Context) error

	// IsAvailable is a pure function of configured credentials and auth
	// type; no network calls.
	IsAvailable() bool

	// MockData returns the canned record for the normalized number, with
	// timestamps restamped at lookup time, or nil when the table has no
	// entry.
	MockData(trackingNumber string) *models.TrackingInfo

	// Track performs the live carrier call. Returns an *APIError on network
	// failure, timeout, not-found, unparseable response or a
	// carrier-reported error. A successful result never has empty Events.
	Track(ctx context.Context, trackingNumber string) (*models.TrackingInfo, error)

	// Config exposes the static carrier configuration.
	Config() carriers.Config
}
