package fedex

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
)

// Provider talks to the FedEx Track API (JSON, oauth client credentials
// against the sandbox token endpoint).
type Provider struct {
	*carrier.Base
}

func New(cfg carriers.Config, creds carriers.Credentials) *Provider {
	return &Provider{Base: carrier.NewBase(cfg, creds)}
}

// Sandbox scan events regularly carry no usable timestamps, so events get
// synthesized descending times spaced this far apart. Ordering stays
// internally consistent; the specific times are not real.
const syntheticEventSpacing = 2 * time.Hour

type trackRequest struct {
	IncludeDetailedScans bool               `json:"includeDetailedScans"`
	TrackingInfo         []trackingInfoItem `json:"trackingInfo"`
}

type trackingInfoItem struct {
	TrackingNumberInfo trackingNumberInfo `json:"trackingNumberInfo"`
}

type trackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

type trackResponse struct {
	Output struct {
		CompleteTrackResults []struct {
			TrackResults []trackResult `json:"trackResults"`
		} `json:"completeTrackResults"`
	} `json:"output"`
}

type trackResult struct {
	LatestStatusDetail struct {
		Description  string       `json:"description"`
		ScanLocation scanLocation `json:"scanLocation"`
	} `json:"latestStatusDetail"`
	ScanEvents []scanEvent `json:"scanEvents"`
}

type scanEvent struct {
	EventDescription string       `json:"eventDescription"`
	ScanLocation     scanLocation `json:"scanLocation"`
}

type scanLocation struct {
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
}

func (p *Provider) Track(ctx context.Context, trackingNumber string) (*models.TrackingInfo, error) {
	n := carriers.Normalize(trackingNumber)
	name := p.Config().Name

	body, err := json.Marshal(trackRequest{
		IncludeDetailedScans: true,
		TrackingInfo: []trackingInfoItem{
			{TrackingNumberInfo: trackingNumberInfo{TrackingNumber: n}},
		},
	})
	if err != nil {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindBadResponse, Msg: "marshal request", Err: err}
	}

	resp, err := p.DoRequest(ctx, http.MethodPost, p.Config().Endpoints.Track, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindNotFound, Msg: "tracking number not found"}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindCarrier, Msg: resp.Status}
	}

	var r trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindBadResponse, Msg: "decode", Err: err}
	}

	if len(r.Output.CompleteTrackResults) == 0 || len(r.Output.CompleteTrackResults[0].TrackResults) == 0 {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindNotFound, Msg: "tracking number not found"}
	}
	td := r.Output.CompleteTrackResults[0].TrackResults[0]

	now := p.Now()
	var events []models.TrackingEvent
	for i, e := range td.ScanEvents {
		events = append(events, p.NewEvent(
			e.EventDescription,
			joinLocation(e.ScanLocation),
			now.Add(-time.Duration(i)*syntheticEventSpacing),
			carrier.OptStr(e.EventDescription),
		))
	}
	if len(events) == 0 {
		desc := td.LatestStatusDetail.Description
		if desc == "" {
			desc = "Package tracked"
		}
		events = []models.TrackingEvent{
			p.NewEvent(td.LatestStatusDetail.Description, joinLocation(td.LatestStatusDetail.ScanLocation), now, carrier.OptStr(desc)),
		}
	}

	latest := events[0]
	return &models.TrackingInfo{
		TrackingNumber: n,
		Carrier:        name,
		Status:         p.MapStatus(latest.Status),
		Location:       latest.Location,
		Timestamp:      latest.Timestamp,
		Description:    latest.Description,
		Events:         events,
	}, nil
}

func joinLocation(l scanLocation) *string {
	if l.City == "" {
		return nil
	}
	return carrier.OptStr(l.City + ", " + l.StateOrProvinceCode)
}
