package carrier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/models"
	"github.com/pkg/errors"
)

// Base carries the behavior shared by all providers: availability from
// credentials, oauth initialization, authenticated timeout-bounded requests,
// mock table lookup and status mapping. Concrete providers embed it and
// implement only Track.
type Base struct {
	cfg   carriers.Config
	creds carriers.Credentials
	httpc *http.Client

	accessToken string

	// now is swappable in tests; mock restamping depends on it.
	now func() time.Time
}

func NewBase(cfg carriers.Config, creds carriers.Credentials) *Base {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Base{
		cfg:   cfg,
		creds: creds,
		httpc: &http.Client{Timeout: timeout},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (b *Base) Config() carriers.Config { return b.cfg }

func (b *Base) Credentials() carriers.Credentials { return b.creds }

// Initialize acquires the oauth token for oauth carriers; a no-op otherwise.
func (b *Base) Initialize(ctx context.Context) error {
	if b.cfg.AuthType == carriers.AuthOAuth {
		return b.initializeOAuth(ctx)
	}
	return nil
}

// IsAvailable is true only when every credential field required by the
// configured auth type is present. No network calls.
func (b *Base) IsAvailable() bool {
	switch b.cfg.AuthType {
	case carriers.AuthNone:
		return true
	case carriers.AuthOAuth:
		return b.creds.ClientID != "" && b.creds.ClientSecret != ""
	case carriers.AuthBearer, carriers.AuthAPIKey:
		return b.creds.APIKey != ""
	case carriers.AuthBasic:
		return b.creds.Username != "" && b.creds.Password != ""
	default:
		return false
	}
}

// MockData looks up the canned record by exact normalized number. Timestamps
// are rebuilt from relative ages at every call, so repeated lookups stay
// fresh.
func (b *Base) MockData(trackingNumber string) *models.TrackingInfo {
	n := carriers.Normalize(trackingNumber)
	rec, ok := b.cfg.MockData[n]
	if !ok {
		return nil
	}

	now := b.now()
	events := make([]models.TrackingEvent, 0, len(rec.Events))
	for _, e := range rec.Events {
		events = append(events, models.TrackingEvent{
			Status:      e.Status,
			Location:    optStr(e.Location),
			Timestamp:   now.Add(-e.Age),
			Description: optStr(e.Description),
		})
	}
	if len(events) == 0 {
		events = append(events, models.TrackingEvent{
			Status:      rec.Status,
			Location:    optStr(rec.Location),
			Timestamp:   now,
			Description: optStr(rec.Description),
		})
	}

	return &models.TrackingInfo{
		TrackingNumber: n,
		Carrier:        b.cfg.Name,
		Status:         rec.Status,
		Location:       optStr(rec.Location),
		Timestamp:      events[0].Timestamp,
		Description:    optStr(rec.Description),
		Events:         events,
	}
}

func (b *Base) initializeOAuth(ctx context.Context) error {
	if b.creds.ClientID == "" || b.creds.ClientSecret == "" {
		return errors.Errorf("%s oauth credentials not configured", b.cfg.Name)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", b.creds.ClientID)
	form.Set("client_secret", b.creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.cfg.APIEndpoint+b.cfg.Endpoints.OAuth, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "oauth request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s oauth", b.cfg.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("%s oauth failed: http %d", b.cfg.Name, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "decode oauth response")
	}
	if body.AccessToken == "" {
		return errors.Errorf("%s oauth: empty access_token", b.cfg.Name)
	}
	b.accessToken = body.AccessToken
	return nil
}

// DoRequest issues an authenticated call to APIEndpoint+path, bounded by the
// configured timeout. Timeouts come back as KindTimeout, other transport
// failures as KindNetwork. Callers own the response body.
func (b *Base) DoRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.cfg.APIEndpoint+path, body)
	if err != nil {
		return nil, &APIError{Carrier: b.cfg.Name, Kind: KindNetwork, Msg: "build request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	switch b.cfg.AuthType {
	case carriers.AuthOAuth:
		if b.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+b.accessToken)
		}
	case carriers.AuthBearer, carriers.AuthAPIKey:
		if b.creds.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+b.creds.APIKey)
		}
	case carriers.AuthBasic:
		if b.creds.Username != "" && b.creds.Password != "" {
			enc := base64.StdEncoding.EncodeToString([]byte(b.creds.Username + ":" + b.creds.Password))
			req.Header.Set("Authorization", "Basic "+enc)
		}
	}

	resp, err := b.httpc.Do(req)
	if err != nil {
		kind := KindNetwork
		if isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &APIError{Carrier: b.cfg.Name, Kind: kind, Msg: "do request", Err: err}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// MapStatus maps raw carrier status text to a normalized status via the
// ordered substring table. No match yields UNKNOWN.
func (b *Base) MapStatus(raw string) string {
	low := strings.ToLower(raw)
	for _, rule := range b.cfg.StatusMapping {
		if strings.Contains(low, rule.Substring) {
			return rule.Status
		}
	}
	return models.TrackingStatusUnknown
}

// NewEvent builds a TrackingEvent, substituting defaults so status is never
// empty and the timestamp is always a valid time.
func (b *Base) NewEvent(status string, location *string, ts time.Time, description *string) models.TrackingEvent {
	if status == "" {
		status = "Unknown"
	}
	if ts.IsZero() {
		ts = b.now()
	}
	return models.TrackingEvent{
		Status:      status,
		Location:    location,
		Timestamp:   ts,
		Description: description,
	}
}

// Now returns the provider clock (UTC).
func (b *Base) Now() time.Time { return b.now() }

// WithClock overrides the provider clock. Test helper.
func (b *Base) WithClock(now func() time.Time) *Base {
	if now != nil {
		b.now = now
	}
	return b
}

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// OptStr returns nil for an empty string, a pointer otherwise. Shared by the
// per-carrier parsers.
func OptStr(s string) *string { return optStr(s) }
