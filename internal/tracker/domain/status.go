package domain

import "fmt"

// Status is the account lifecycle state. It is stored as a string; the set
// of legal encodings below is versioned by the schema migrations, and
// decoding an unknown string fails loudly instead of defaulting.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus decodes a persisted status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(s), nil
	}
	return "", fmt.Errorf("domain: unknown user status %q", s)
}

func (s Status) String() string { return string(s) }

// CanLogin reports whether an account in this state may authenticate.
func (s Status) CanLogin() bool { return s == StatusActive }
