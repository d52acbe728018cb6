package model

import "time"

// EmergencyEvent is a single reported incident.
type EmergencyEvent struct {
	ID          string        `json:"id"`
	Type        string        `json:"type"`     // e.g. "medical", "fire", "natural_disaster"
	Severity    EventSeverity `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Location    *Coordinates  `json:"location,omitempty"`
	Address     string        `json:"address,omitempty"` // Optional reverse-geocoded address
	ReportedBy  string        `json:"reported_by"`
	ReportedAt  time.Time     `json:"reported_at"`
	Status      EventStatus   `json:"status"`
	TrustWeight float64       `json:"trust_weight"` // Reporter trust at creation, later the consensus weighted score
	Updates     []EventUpdate `json:"updates,omitempty"`

	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time        `json:"closed_at,omitempty"`
	Resolution *ResolutionReport `json:"resolution,omitempty"`

	// Set when malformed field values are detected on update. The
	// record is kept and flagged rather than rejected.
	DataIntegrityFlag bool     `json:"data_integrity_flag,omitempty"`
	ReviewRequired    bool     `json:"review_required,omitempty"`
	IntegrityNotes    []string `json:"integrity_notes,omitempty"`
}

// EventUpdate is a free-form status, resource, or casualty update
// attached to an event.
type EventUpdate struct {
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// ResolutionReport is the final payload carried by an explicit
// active -> resolved transition.
type ResolutionReport struct {
	ResolvedBy      string  `json:"resolved_by"`
	Casualties      int     `json:"casualties"`
	ResourcesUsed   []string `json:"resources_used,omitempty"`
	ResponseMinutes float64 `json:"response_minutes"`
	Notes           string  `json:"notes,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point is inside the WGS84 envelope.
// NaN compares false on both bounds, so it fails here too.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	StatusPending  EventStatus = "pending"
	StatusActive   EventStatus = "active"
	StatusResolved EventStatus = "resolved"
	StatusClosed   EventStatus = "closed"
)

// EventSeverity ranks the severity of an event.
type EventSeverity string

const (
	SeverityLow      EventSeverity = "low"
	SeverityMedium   EventSeverity = "medium"
	SeverityHigh     EventSeverity = "high"
	SeverityCritical EventSeverity = "critical"
)

// Valid reports whether the severity is one of the known levels.
func (s EventSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}
