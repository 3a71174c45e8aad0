package carriers

import (
	"os"
	"time"

	"github.com/BearBump/ShipTrack/internal/models"
)

const defaultTimeout = 10 * time.Second

// DefaultConfigs returns the static configuration for all supported
// carriers, keyed by carrier code.
func DefaultConfigs() map[Code]Config {
	return map[Code]Config{
		UPS: {
			Code:        UPS,
			Name:        "UPS",
			APIEndpoint: "https://onlinetools.ups.com",
			AuthType:    AuthOAuth,
			Timeout:     defaultTimeout,
			Retries:     2,
			Endpoints: Endpoints{
				OAuth: "/security/v1/oauth/token",
				Track: "/api/track/v1/details",
			},
			MockData:      upsMockData(),
			StatusMapping: upsStatusMapping(),
		},
		FedEx: {
			Code:        FedEx,
			Name:        "FedEx",
			APIEndpoint: "https://apis-sandbox.fedex.com",
			AuthType:    AuthOAuth,
			Timeout:     defaultTimeout,
			Retries:     2,
			Endpoints: Endpoints{
				OAuth: "/oauth/token",
				Track: "/track/v1/trackingnumbers",
			},
			MockData:      fedexMockData(),
			StatusMapping: fedexStatusMapping(),
		},
		USPS: {
			Code:        USPS,
			Name:        "USPS",
			APIEndpoint: "http://production.shippingapis.com",
			// Web Tools has no auth header; the user id rides inside the XML
			// request body. api_key keeps the availability check honest.
			AuthType: AuthAPIKey,
			Timeout:     defaultTimeout,
			Retries:     2,
			Endpoints: Endpoints{
				Track: "/ShippingAPI.dll",
			},
			MockData:      uspsMockData(),
			StatusMapping: uspsStatusMapping(),
		},
	}
}

// CredentialsFromEnv reads the carrier's secrets from the process
// environment. Called once at registry initialization.
func CredentialsFromEnv(code Code) Credentials {
	switch code {
	case UPS:
		return Credentials{
			ClientID:     os.Getenv("UPS_CLIENT_ID"),
			ClientSecret: os.Getenv("UPS_CLIENT_SECRET"),
		}
	case FedEx:
		return Credentials{
			ClientID:     os.Getenv("FEDEX_CLIENT_ID"),
			ClientSecret: os.Getenv("FEDEX_CLIENT_SECRET"),
		}
	case USPS:
		id := os.Getenv("USPS_WEB_TOOLS_USER_ID")
		return Credentials{
			UserID: id,
			APIKey: id,
		}
	}
	return Credentials{}
}

func upsStatusMapping() []StatusRule {
	return []StatusRule{
		{"delivered", models.TrackingStatusDelivered},
		{"out for delivery", models.TrackingStatusOutForDelivery},
		{"exception", models.TrackingStatusException},
		{"failed", models.TrackingStatusException},
		{"returned", models.TrackingStatusException},
		{"picked up", models.TrackingStatusInTransit},
		{"in transit", models.TrackingStatusInTransit},
		{"departed", models.TrackingStatusInTransit},
		{"arrived", models.TrackingStatusInTransit},
		{"origin scan", models.TrackingStatusInTransit},
		{"pending", models.TrackingStatusPending},
		{"order processed", models.TrackingStatusPending},
	}
}

func fedexStatusMapping() []StatusRule {
	return []StatusRule{
		{"delivered", models.TrackingStatusDelivered},
		{"out for delivery", models.TrackingStatusOutForDelivery},
		{"exception", models.TrackingStatusException},
		{"failed", models.TrackingStatusException},
		{"picked up", models.TrackingStatusInTransit},
		{"in transit", models.TrackingStatusInTransit},
		{"at local facility", models.TrackingStatusInTransit},
		{"departed", models.TrackingStatusInTransit},
		{"arrived", models.TrackingStatusInTransit},
		{"pending", models.TrackingStatusPending},
		{"shipment information sent", models.TrackingStatusPending},
	}
}

func uspsStatusMapping() []StatusRule {
	return []StatusRule{
		{"delivered", models.TrackingStatusDelivered},
		{"out for delivery", models.TrackingStatusOutForDelivery},
		{"exception", models.TrackingStatusException},
		{"failed", models.TrackingStatusException},
		{"alert", models.TrackingStatusException},
		{"picked up", models.TrackingStatusInTransit},
		{"in transit", models.TrackingStatusInTransit},
		{"arrived", models.TrackingStatusInTransit},
		{"departed", models.TrackingStatusInTransit},
		{"pending", models.TrackingStatusPending},
		{"accepted", models.TrackingStatusPending},
		{"pre-shipment", models.TrackingStatusPending},
	}
}

func upsMockData() map[string]MockRecord {
	return map[string]MockRecord{
		"1Z999AA1234567890": {
			Status:      models.TrackingStatusInTransit,
			Location:    "Memphis, TN",
			Description: "Package in transit to next facility",
			Events: []MockEvent{
				{Status: "In Transit", Location: "Memphis, TN", Description: "Package in transit to next facility", Age: 0},
				{Status: "Arrived at Facility", Location: "Louisville, KY", Description: "Package arrived at UPS facility", Age: 24 * time.Hour},
				{Status: "Picked Up", Location: "New York, NY", Description: "Package picked up by UPS", Age: 48 * time.Hour},
			},
		},
	}
}

func fedexMockData() map[string]MockRecord {
	return map[string]MockRecord{
		"123456789012": {
			Status:      models.TrackingStatusOutForDelivery,
			Location:    "Los Angeles, CA",
			Description: "Package out for delivery",
			Events: []MockEvent{
				{Status: "Out for Delivery", Location: "Los Angeles, CA", Description: "Package out for delivery", Age: 0},
				{Status: "At Local Facility", Location: "Los Angeles, CA", Description: "Package arrived at local FedEx facility", Age: 12 * time.Hour},
				{Status: "In Transit", Location: "Memphis, TN", Description: "Package in transit", Age: 24 * time.Hour},
			},
		},
	}
}

func uspsMockData() map[string]MockRecord {
	return map[string]MockRecord{
		"9400100000000000000000": {
			Status:      models.TrackingStatusDelivered,
			Location:    "Chicago, IL",
			Description: "Package delivered to recipient",
			Events: []MockEvent{
				{Status: "Delivered", Location: "Chicago, IL", Description: "Package delivered to recipient", Age: time.Hour},
				{Status: "Out for Delivery", Location: "Chicago, IL", Description: "Package out for delivery", Age: 2 * time.Hour},
				{Status: "Arrived at Post Office", Location: "Chicago, IL", Description: "Package arrived at local post office", Age: 24 * time.Hour},
			},
		},
	}
}
