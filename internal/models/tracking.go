package models

import "time"

// Normalized statuses. Every carrier vocabulary maps into this set.
const (
	TrackingStatusInTransit      = "IN_TRANSIT"
	TrackingStatusOutForDelivery = "OUT_FOR_DELIVERY"
	TrackingStatusDelivered      = "DELIVERED"
	TrackingStatusException      = "EXCEPTION"
	TrackingStatusPending        = "PENDING"
	TrackingStatusUnknown        = "UNKNOWN"
)

// TrackingInfo is the canonical result of one resolution, regardless of
// whether it came from a live carrier API, the mock table or a synthetic
// fallback. Not mutated after construction.
type TrackingInfo struct {
	TrackingNumber string          `json:"trackingNumber"`
	Carrier        string          `json:"carrier"`
	Status         string          `json:"status"`
	Location       *string         `json:"location,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Description    *string         `json:"description,omitempty"`
	Events         []TrackingEvent `json:"events"`
}

// TrackingEvent is one carrier-reported event. Events[0] is always the most
// recent one.
type TrackingEvent struct {
	Status      string    `json:"status"`
	Location    *string   `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description *string   `json:"description,omitempty"`
}

// HistoryRecord is one persisted resolution for a user (or the background
// refresher, which stores without a user).
type HistoryRecord struct {
	ID             uint64    `json:"id"`
	UserID         *string   `json:"userId,omitempty"`
	TrackingNumber string    `json:"trackingNumber"`
	Carrier        string    `json:"carrier"`
	Status         string    `json:"status"`
	Location       *string   `json:"location,omitempty"`
	EventTime      time.Time `json:"eventTime"`
	Description    *string   `json:"description,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ValidStatus reports whether s is one of the six normalized statuses.
func ValidStatus(s string) bool {
	switch s {
	case TrackingStatusInTransit, TrackingStatusOutForDelivery, TrackingStatusDelivered,
		TrackingStatusException, TrackingStatusPending, TrackingStatusUnknown:
		return true
	}
	return false
}
