package domain

import "time"

// AuditEvent is an immutable record of a security-relevant action. Events
// are written once to each sink and never mutated; retention is an external
// concern.
//
// RequestID is the correlation identifier shared by every event produced
// while handling one inbound request. It is always present: the emitter
// generates one when the request did not supply it. Action is the only
// other mandatory field.
type AuditEvent struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Description  string         `json:"description,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	RequestID    string         `json:"request_id"`
	Details      map[string]any `json:"details,omitempty"`
}

// AuditFilter narrows audit event listings. Zero fields match everything;
// the store indexes actor, action, and timestamp for these lookups.
type AuditFilter struct {
	ActorID string
	Action  string
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}
