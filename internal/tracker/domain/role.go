package domain

import "time"

// Role names are a closed set seeded by the bootstrap pass. The role name is
// the decision input for post-login routing: admins land on the admin
// surface, everyone else on the user surface.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the role grants the administrative surface.
func (r Role) IsAdmin() bool { return r.Name == RoleAdmin }
