package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RoleCustomer marks identities created for booking purchasers
const RoleCustomer = "customer"

// Customer is the local identity that owns reservations.
// Accounts created during booking finalization carry a placeholder
// password hash nobody knows; claiming such an account is handled elsewhere.
type Customer struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	Email           string         `json:"email" db:"email"`
	FirstName       string         `json:"first_name" db:"first_name"`
	LastName        string         `json:"last_name" db:"last_name"`
	Phone           NullString     `json:"phone,omitempty" db:"phone"`
	PasswordHash    string         `json:"-" db:"password_hash"`
	Roles           pq.StringArray `json:"roles" db:"roles"`
	EmailVerifiedAt NullTime       `json:"email_verified_at,omitempty" db:"email_verified_at"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRole checks if the customer has a specific role
func (c *Customer) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName returns "First Last"
func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
