package domain

import "time"

// EventType names a directory state change.
type EventType string

const (
	EventCreated     EventType = "directory.created"
	EventUpdated     EventType = "directory.updated"
	EventDeactivated EventType = "directory.deactivated"
	EventReactivated EventType = "directory.reactivated"
	EventNGOVerified EventType = "directory.ngo_verified"
	EventSignedIn    EventType = "directory.signed_in"
)

// Source names the path that caused a change.
type Source string

const (
	SourceWebhook     Source = "webhook"
	SourceSignup      Source = "signup"
	SourceSelfService Source = "self_service"
	SourceAdmin       Source = "admin"
)

// DirectoryEvent is the audit/telemetry record emitted after a committed directory write.
// It carries ids and classifications only; no email, name or profile data.
type DirectoryEvent struct {
	Type       EventType `json:"type"`
	Source     Source    `json:"source"`
	UserID     string    `json:"userId,omitempty"`
	ExternalID string    `json:"externalId,omitempty"`
	Role       string    `json:"role,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Version    int64     `json:"version,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
