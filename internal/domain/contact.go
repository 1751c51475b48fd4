package domain

import "time"

// Contact is a single address-book entry, always owned by exactly one user.
// Email is unique per owner, not globally.
type Contact struct {
	ID        string
	UserID    string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Birthday  *time.Time
	ExtraInfo string
	CreatedAt time.Time
	UpdatedAt time.Time
}
