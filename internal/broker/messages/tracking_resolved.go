package messages

import "time"

// TrackingResolved is published after every background resolution. track-api
// consumes it to keep the current-status cache warm.
type TrackingResolved struct {
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	CheckedAt      time.Time `json:"checked_at"`

	Status      string     `json:"status,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StatusAt    *time.Time `json:"status_at,omitempty"`
	Description *string    `json:"description,omitempty"`

	Events []TrackingEvent `json:"events,omitempty"`

	Error *string `json:"error,omitempty"`
}

type TrackingEvent struct {
	Status      string    `json:"status"`
	EventTime   time.Time `json:"event_time"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
}
