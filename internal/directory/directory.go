// Package directory owns the persistent principal records: account
// identity, role, active flag, profile fields, and the per-principal set of
// currently valid refresh tokens. It is the source of truth a refresh token
// must be checked against; the token signature alone never grants access.
package directory

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("principal not found")
	ErrEmailExists = errors.New("email already registered")
)

// Role is the closed set of account kinds. Authorization decisions
// branch on it.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider:
		return true
	}
	return false
}

// Location is where a provider offers services.
type Location struct {
	City    string `json:"city"`
	Address string `json:"address"`
}

// ProviderProfile is the provider-only payload. It exists only on
// principals with RoleProvider, enforced at construction.
type ProviderProfile struct {
	BusinessName        string   `json:"businessName"`
	BusinessDescription string   `json:"businessDescription"`
	Services            []string `json:"services"`
	Location            Location `json:"location"`
}

// Principal is one registered account. Provider is nil unless Role is
// RoleProvider; the password hash never leaves the store.
type Principal struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Active    bool             `json:"active"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Phone     string           `json:"phone"`
	Provider  *ProviderProfile `json:"provider,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewClient constructs a client principal. The id is assigned on insert.
func NewClient(email string, firstName string, lastName string, phone string) *Principal {
	return &Principal{
		Email:     email,
		Role:      RoleClient,
		Active:    true,
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
	}
}

// NewProvider constructs a provider principal carrying its business payload.
func NewProvider(
	email string,
	firstName string,
	lastName string,
	phone string,
	profile ProviderProfile,
) *Principal {
	p := NewClient(email, firstName, lastName, phone)
	p.Role = RoleProvider
	p.Provider = &profile
	return p
}

// ProfileUpdate carries the mutable profile fields. Email, role, active
// flag, and tokens are never updated through this path.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Filter selects principals for listing. Zero values mean "no constraint";
// Limit is clamped by the store.
type Filter struct {
	Role   Role
	Search string
	Page   int
	Limit  int
}
