package domain

import "time"

// User is an identity that can sign in to the tracker.
//
// TwoFactorSecret is non-nil exactly when TwoFactorEnabled is true; the two
// fields are only ever written together, inside one transaction.
type User struct {
	ID               string
	Username         string
	FullName         string
	Email            string // unique, matched case-sensitively at login
	PasswordHash     string // argon2id PHC encoded
	RoleID           string
	Status           Status
	TwoFactorEnabled bool
	TwoFactorSecret  *string    // base32 TOTP secret (nullable)
	LastLoginAt      *time.Time // nullable until first successful login
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
