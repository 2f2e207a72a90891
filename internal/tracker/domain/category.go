package domain

import "time"

// Category groups transactions for reporting.
type Category struct {
	ID        string
	Name      string // unique
	Color     string // hex, e.g. "#6366f1"
	Icon      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
