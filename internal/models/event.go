package models

import "time"

// EventType identifies the category of honeypot activity.
type EventType string

const (
	EventTypeConnection      EventType = "connection"
	EventTypeLoginAttempt    EventType = "login_attempt"
	EventTypeUnusualActivity EventType = "unusual_activity"
)

// Event is one parsed, normalized record of honeypot activity.
// Events are immutable once stored; SourceOffset is the byte position of the
// line in the source log and doubles as the deduplication key.
type Event struct {
	SourceOffset int64     `json:"source_offset"`
	Timestamp    time.Time `json:"timestamp"` // always UTC
	Type         EventType `json:"event_type"`
	SrcIP        string    `json:"src_ip"`
	DstPort      int       `json:"dst_port"`

	// Credential fields are nil when the source line carried no such field.
	// An empty string is a legitimate recorded value (e.g. blank password)
	// and is distinct from absent.
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`

	// RawPayload preserves the original line for forensics.
	RawPayload string `json:"raw_payload"`
}

// HasCredentials reports whether the event carries a username or password.
func (e *Event) HasCredentials() bool {
	return e.Username != nil || e.Password != nil
}
