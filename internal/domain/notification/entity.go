package notification

import (
	"time"
)

// EventType identifies what happened to an attendance request
type EventType string

const (
	EventRequestCreated EventType = "attendance_request_created"
	EventRequestDecided EventType = "attendance_request_decided"
)

func (t EventType) Valid() bool {
	return t == EventRequestCreated || t == EventRequestDecided
}

// Event is a fire-and-forget notice about an attendance request. The
// dispatcher resolves recipients itself.
type Event struct {
	Type        EventType
	RequestID   string
	RequesterID string
	ProjectID   *string
	RequestType string
	StartDate   time.Time
	EndDate     time.Time
	Reason      string

	// Set for EventRequestDecided only
	Decision   string
	ApproverID string
	Comment    *string

	OccurredAt time.Time
}

// InAppMessage is what SSE subscribers receive for an Event.
type InAppMessage struct {
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id"`
	RequestType string    `json:"request_type"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Decision    string    `json:"decision,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// SSEEvent represents a Server-Sent Event
type SSEEvent struct {
	Event string       `json:"event"`
	Data  InAppMessage `json:"data"`
}

// SSETokenResponse carries the short-lived token the stream endpoint expects
// in its query string.
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
