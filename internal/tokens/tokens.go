// Package tokens signs and verifies the two token kinds used by the servedi
// auth server: short-lived access tokens and longer-lived refresh tokens.
// Each kind is signed with its own secret so that a leaked access secret
// cannot mint refresh tokens, and vice versa.
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired reports a structurally sound token whose lifetime has elapsed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid reports a malformed, tampered, or wrong-kind token.
	ErrInvalid = errors.New("token invalid")
)

// Claims is the signed payload carried by both token kinds.
type Claims struct {
	PrincipalID string `json:"uid"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Pair bundles the two encoded tokens issued together at login,
// registration, and every successful refresh. RefreshExpiresAt is carried
// so the session store can record the new token's lifetime without
// re-parsing it.
type Pair struct {
	Access           string
	Refresh          string
	RefreshExpiresAt time.Time
}

// SecretSource supplies the current signing secrets. Implementations may
// swap secrets at runtime (key file reload), so callers must not cache
// the returned slices.
type SecretSource interface {
	AccessSecret() []byte
	RefreshSecret() []byte
}

// StaticSecrets is a SecretSource over fixed byte slices.
type StaticSecrets struct {
	Access  []byte
	Refresh []byte
}

func (s StaticSecrets) AccessSecret() []byte  { return s.Access }
func (s StaticSecrets) RefreshSecret() []byte { return s.Refresh }

const (
	DefaultAccessLifetime  = 15 * time.Minute
	DefaultRefreshLifetime = 7 * 24 * time.Hour
)
