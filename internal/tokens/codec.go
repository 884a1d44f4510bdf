package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds Codec construction parameters. Zero lifetimes fall back to
// the package defaults; a nil Now falls back to time.Now.
type Config struct {
	Secrets         SecretSource
	Issuer          string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	Now             func() time.Time
}

// Codec issues and verifies signed tokens. It is stateless apart from its
// configuration and safe for concurrent use.
type Codec struct {
	secrets         SecretSource
	issuer          string
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	now             func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secrets == nil {
		return nil, errors.New("tokens: secret source required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("tokens: issuer required")
	}
	if cfg.AccessLifetime == 0 {
		cfg.AccessLifetime = DefaultAccessLifetime
	}
	if cfg.RefreshLifetime == 0 {
		cfg.RefreshLifetime = DefaultRefreshLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Codec{
		secrets:         cfg.Secrets,
		issuer:          cfg.Issuer,
		accessLifetime:  cfg.AccessLifetime,
		refreshLifetime: cfg.RefreshLifetime,
		now:             cfg.Now,
	}, nil
}

func (c *Codec) AccessLifetime() time.Duration  { return c.accessLifetime }
func (c *Codec) RefreshLifetime() time.Duration { return c.refreshLifetime }

func (c *Codec) IssueAccess(principalID string, email string, role string) (string, error) {
	return c.issue(principalID, email, role, c.accessLifetime, c.secrets.AccessSecret())
}

func (c *Codec) IssueRefresh(principalID string, email string, role string) (string, error) {
	return c.issue(principalID, email, role, c.refreshLifetime, c.secrets.RefreshSecret())
}

// IssuePair issues an access and a refresh token over the same claims.
func (c *Codec) IssuePair(principalID string, email string, role string) (Pair, error) {
	access, err := c.IssueAccess(principalID, email, role)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := c.IssueRefresh(principalID, email, role)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		Access:           access,
		Refresh:          refresh,
		RefreshExpiresAt: c.now().Add(c.refreshLifetime),
	}, nil
}

func (c *Codec) VerifyAccess(encoded string) (*Claims, error) {
	return c.verify(encoded, c.secrets.AccessSecret())
}

func (c *Codec) VerifyRefresh(encoded string) (*Claims, error) {
	return c.verify(encoded, c.secrets.RefreshSecret())
}

func (c *Codec) issue(
	principalID string,
	email string,
	role string,
	lifetime time.Duration,
	secret []byte,
) (string, error) {
	now := c.now()
	claims := Claims{
		PrincipalID: principalID,
		Email:       email,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("couldn't sign token: %v", err)
	}
	return encoded, nil
}

// verify rejects tampered payloads and distinguishes "expired" from
// "structurally invalid" so callers can pick different remediation.
func (c *Codec) verify(encoded string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	token, err := parser.ParseWithClaims(encoded, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.PrincipalID == "" {
		return nil, fmt.Errorf("%w: missing principal claim", ErrInvalid)
	}
	return claims, nil
}
