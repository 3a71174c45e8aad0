package usps

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/models"
)

// Provider talks to USPS Web Tools TrackV2: a hand-composed XML request in a
// form POST, and a response parsed by text-pattern extraction. Web Tools has
// no real schema discipline, so a full XML object model buys nothing here.
type Provider struct {
	*carrier.Base
}

func New(cfg carriers.Config, creds carriers.Credentials) *Provider {
	return &Provider{Base: carrier.NewBase(cfg, creds)}
}

var (
	reError       = regexp.MustCompile(`<Description[^>]*>([^<]*)</Description>`)
	reTrackInfo   = regexp.MustCompile(`(?s)<TrackInfo[^>]*>(.*?)</TrackInfo>`)
	reTrackDetail = regexp.MustCompile(`(?s)<TrackDetail[^>]*>(.*?)</TrackDetail>`)
	reEvent       = regexp.MustCompile(`<Event[^>]*>([^<]*)</Event>`)
	reEventCity   = regexp.MustCompile(`<EventCity[^>]*>([^<]*)</EventCity>`)
	reEventState  = regexp.MustCompile(`<EventState[^>]*>([^<]*)</EventState>`)
	reEventDate   = regexp.MustCompile(`<EventDate[^>]*>([^<]*)</EventDate>`)
	reEventTime   = regexp.MustCompile(`<EventTime[^>]*>([^<]*)</EventTime>`)
)

func (p *Provider) Track(ctx context.Context, trackingNumber string) (*models.TrackingInfo, error) {
	n := carriers.Normalize(trackingNumber)
	name := p.Config().Name

	xmlRequest := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<TrackFieldRequest USERID="%s">
  <Revision>1</Revision>
  <ClientIp>127.0.0.1</ClientIp>
  <SourceId>ShipTrack</SourceId>
  <TrackID ID="%s"></TrackID>
</TrackFieldRequest>`, p.Credentials().UserID, n)

	form := url.Values{}
	form.Set("API", "TrackV2")
	form.Set("XML", xmlRequest)

	resp, err := p.DoRequest(ctx, http.MethodPost, p.Config().Endpoints.Track,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindRestricted,
			Msg: "access denied, Web Tools is primarily available for US-based users"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindCarrier, Msg: "temporarily unavailable"}
	case resp.StatusCode/100 != 2:
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindCarrier, Msg: resp.Status}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindNetwork, Msg: "read body", Err: err}
	}
	xmlText := string(raw)

	if strings.Contains(xmlText, "<Error>") {
		msg := "unknown error"
		if m := reError.FindStringSubmatch(xmlText); m != nil {
			msg = m[1]
		}
		low := strings.ToLower(msg)
		if strings.Contains(low, "not eligible") || strings.Contains(low, "geographic") || strings.Contains(low, "location") {
			return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindRestricted, Msg: msg}
		}
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindCarrier, Msg: msg}
	}

	events := p.parseEvents(xmlText)
	if len(events) == 0 {
		return nil, &carrier.APIError{Carrier: name, Kind: carrier.KindBadResponse, Msg: "no track details in response"}
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

// parseEvents extracts the repeated TrackDetail blocks inside TrackInfo.
// Web Tools returns them newest first.
func (p *Provider) parseEvents(xmlText string) []models.TrackingEvent {
	info := reTrackInfo.FindStringSubmatch(xmlText)
	if info == nil {
		return nil
	}

	var events []models.TrackingEvent
	for _, detail := range reTrackDetail.FindAllStringSubmatch(info[1], -1) {
		em := reEvent.FindStringSubmatch(detail[1])
		if em == nil {
			continue
		}
		event := em[1]

		var loc *string
		city := reEventCity.FindStringSubmatch(detail[1])
		state := reEventState.FindStringSubmatch(detail[1])
		if city != nil && state != nil {
			loc = carrier.OptStr(city[1] + ", " + state[1])
		}

		date, clock := "", ""
		if m := reEventDate.FindStringSubmatch(detail[1]); m != nil {
			date = m[1]
		}
		if m := reEventTime.FindStringSubmatch(detail[1]); m != nil {
			clock = m[1]
		}

		events = append(events, p.NewEvent(event, loc, parseEventTime(date, clock), carrier.OptStr(event)))
	}
	return events
}

// Web Tools dates look like "May 15, 2023" with times like "11:07 am". A
// failed parse yields the zero time, which NewEvent replaces with now.
func parseEventTime(date, clock string) time.Time {
	if date == "" {
		return time.Time{}
	}
	for _, layout := range []string{"January 2, 2006 3:04 pm", "January 2, 2006 15:04"} {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(date+" "+clock), time.UTC); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation("January 2, 2006", date, time.UTC); err == nil {
		return t
	}
	return time.Time{}
}
