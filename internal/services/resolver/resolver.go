package resolver

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/mockcarrier"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

// Structural failures. Everything transient (carrier outage, timeout, bad
// payload, missing credentials) degrades to mock or synthetic data instead.
var (
	ErrUnsupportedCarrier = errors.New("unsupported carrier")
	ErrProviderNotFound   = errors.New("carrier provider not found")
)

// Registry is the subset of the carrier registry the resolver needs.
type Registry interface {
	Get(ctx context.Context, code carriers.Code) (carrier.Provider, bool)
	SupportedCarriers(ctx context.Context) []carriers.Code
}

// Resolver is the single entry point combining detection, provider selection
// and the degradation policy.
type Resolver struct {
	reg Registry
	now func() time.Time
}

func New(reg Registry) *Resolver {
	return &Resolver{reg: reg, now: func() time.Time { return time.Now().UTC() }}
}

// Track resolves a raw tracking number into one normalized record.
//
// Degradation order: live call (only when the provider has credentials) →
// the carrier's mock table → generic synthetic record. Live failures never
// propagate to the caller; only an unrecognized number format or a missing
// registry entry does.
func (r *Resolver) Track(ctx context.Context, rawTrackingNumber string) (*models.TrackingInfo, error) {
	n := carriers.Normalize(rawTrackingNumber)

	code, ok := carriers.Detect(n)
	if !ok {
		return nil, errors.Wrap(ErrUnsupportedCarrier, n)
	}

	p, ok := r.reg.Get(ctx, code)
	if !ok {
		// Should be unreachable: the registry registers a mock fallback for
		// every configured carrier. Handled defensively anyway.
		return nil, errors.Wrap(ErrProviderNotFound, string(code))
	}

	if p.IsAvailable() {
		info, err := p.Track(ctx, n)
		if err == nil {
			return info, nil
		}
		slog.Warn("live tracking failed, degrading to mock data",
			"carrier", string(code), "kind", string(carrier.KindOf(err)), "error", err.Error())
	}

	if info := p.MockData(n); info != nil {
		return info, nil
	}
	return mockcarrier.Synthetic(n, p.Config().Name, r.now()), nil
}

// IsSupported reports whether a carrier currently has a registered provider.
func (r *Resolver) IsSupported(ctx context.Context, code carriers.Code) bool {
	_, ok := r.reg.Get(ctx, code)
	return ok
}

// SupportedCarriers lists carriers with a registered provider.
func (r *Resolver) SupportedCarriers(ctx context.Context) []carriers.Code {
	return r.reg.SupportedCarriers(ctx)
}
