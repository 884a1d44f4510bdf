package service

import (
	"context"
	"time"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
)

// PrincipalStore handles persistence of principal records.
type PrincipalStore interface {
	InsertPrincipal(ctx context.Context, p *directory.Principal, secret []byte) error
	FindByID(ctx context.Context, id string) (*directory.Principal, error)
	FindByEmail(ctx context.Context, email string) (*directory.Principal, error)
	GetSecret(ctx context.Context, email string) ([]byte, error)
	UpdateProfile(ctx context.Context, id string, update directory.ProfileUpdate) (*directory.Principal, error)
	UpdateBusiness(ctx context.Context, id string, profile directory.ProviderProfile) (*directory.Principal, error)
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, filter directory.Filter) ([]*directory.Principal, int, error)
}

// SessionStore handles persistence of each principal's refresh-token set.
// Membership in this set is what makes a refresh token revocable; the
// signature alone is only a forgery check.
type SessionStore interface {
	InsertRefreshToken(ctx context.Context, owner string, token string, expiration time.Time) error
	DeleteRefreshToken(ctx context.Context, owner string, token string) (deleted bool, err error)
	ContainsRefreshToken(ctx context.Context, owner string, token string) (bool, error)
	DeleteAllRefreshTokens(ctx context.Context, owner string) error
}
