package entity

import (
	"strings"
	"time"

	"github.com/garyjia/travel-approval/internal/domain/role"
)

// User is a local actor record, possibly reconciled from the external directory
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       role.Role `json:"role"`
	ActiveRole role.Role `json:"activeRole,omitempty"`
	ExternalID string    `json:"externalId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Actor converts the stored user into the immutable actor used by the gate
func (u *User) Actor() *role.Actor {
	return &role.Actor{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		ActiveRole: u.ActiveRole,
	}
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail lower-cases and trims an email so it can serve as a uniqueness key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
