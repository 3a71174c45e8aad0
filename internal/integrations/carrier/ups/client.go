package ups

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

// Provider talks to the UPS Track API (JSON, oauth client credentials).
type Provider struct {
	*carrier.Base
}

func New(cfg carriers.Config, creds carriers.Credentials) *Provider {
	return &Provider{Base: carrier.NewBase(cfg, creds)}
}

type trackRequest struct {
	InquiryNumber    string `json:"inquiryNumber"`
	Locale           string `json:"locale"`
	ReturnSignature  bool   `json:"returnSignature"`
	ReturnMilestones bool   `json:"returnMilestones"`
	ReturnPOD        bool   `json:"returnPOD"`
}

type trackResponse struct {
	TrackResponse struct {
		Shipment []struct {
			Package []struct {
				Activity []activity `json:"activity"`
			} `json:"package"`
		} `json:"shipment"`
	} `json:"trackResponse"`
}

type activity struct {
	Status struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"status"`
	Location struct {
		Address struct {
			City              string `json:"city"`
			StateProvinceCode string `json:"stateProvince"`
		} `json:"address"`
	} `json:"location"`
	Date string `json:"date"`
	Time string `json:"time"`
}

func (p *Provider) Track(ctx context.Context, trackingNumber string) (*models.TrackingInfo, error) {
	n := carriers.Normalize(trackingNumber)
	name := p.Config().Name

	body, err := json.Marshal(trackRequest{
		InquiryNumber:    n,
		Locale:           "en_US",
		ReturnMilestones: true,
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

	if len(r.TrackResponse.Shipment) == 0 || len(r.TrackResponse.Shipment[0].Package) == 0 {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindNotFound, Msg: "tracking number not found"}
	}

	events := make([]models.TrackingEvent, 0, len(r.TrackResponse.Shipment[0].Package[0].Activity))
	for _, a := range r.TrackResponse.Shipment[0].Package[0].Activity {
		status := a.Status.Description
		if status == "" {
			status = a.Status.Type
		}
		var loc *string
		if a.Location.Address.City != "" && a.Location.Address.StateProvinceCode != "" {
			loc = carrier.OptStr(a.Location.Address.City + ", " + a.Location.Address.StateProvinceCode)
		}
		events = append(events, p.NewEvent(status, loc, parseActivityTime(a.Date, a.Time), carrier.OptStr(status)))
	}

	latest := models.TrackingEvent{Status: "Unknown", Timestamp: p.Now()}
	if len(events) > 0 {
		latest = events[0]
	} else {
		// The API answered but gave no activity; mirror the latest event.
		latest.Description = carrier.OptStr("No tracking information available")
		events = append(events, latest)
	}

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

// UPS reports the event moment as split date and time fields; both dashed
// and compact forms show up depending on the API version.
func parseActivityTime(date, clock string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", "20060102T150405"} {
		if t, err := time.ParseInLocation(layout, date+"T"+clock, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
