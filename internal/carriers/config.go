package carriers

import "time"

// AuthType selects how requests to a carrier API are authenticated.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthOAuth  AuthType = "oauth"
	AuthAPIKey AuthType = "api_key"
	AuthBasic  AuthType = "basic"
)

// Endpoints are carrier-specific API paths relative to APIEndpoint.
type Endpoints struct {
	OAuth string
	Track string
}

// StatusRule maps a lowercase substring of raw carrier status text to one of
// the normalized statuses. Rules are tried in order, first match wins.
type StatusRule struct {
	Substring string
	Status    string
}

// Config is the static, per-carrier configuration. Loaded once at registry
// initialization and treated as read-only afterwards.
type Config struct {
	Code        Code
	Name        string
	APIEndpoint string
	AuthType    AuthType
	Timeout     time.Duration
	Retries     int
	Endpoints   Endpoints

	// MockData is the canned fallback table, keyed by normalized tracking
	// number. Record timestamps are relative so that lookups produce
	// fresh-looking absolute times.
	MockData map[string]MockRecord

	StatusMapping []StatusRule
}

// MockRecord is a canned tracking record. Event ages are offsets back from
// the lookup time; events are ordered most recent first.
type MockRecord struct {
	Status      string
	Location    string
	Description string
	Events      []MockEvent
}

type MockEvent struct {
	Status      string
	Location    string
	Description string
	Age         time.Duration
}

// Credentials are the runtime secrets for one carrier. Which fields matter
// depends on the config's AuthType.
type Credentials struct {
	APIKey       string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserID       string
}
