package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
	"golang.org/x/crypto/bcrypt"
)

// Login checks credentials and opens a session. Missing accounts, bad
// passwords, and deactivated accounts all collapse to ErrInvalidCredentials
// so callers can't probe which check failed.
func (s *Service) Login(
	ctx context.Context,
	email string,
	password string,
) (
	*directory.Principal,
	tokens.Pair,
	error,
) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, tokens.Pair{}, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	hash, err := s.principals.GetSecret(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, tokens.Pair{}, ErrInvalidCredentials
		}
		return nil, tokens.Pair{}, fmt.Errorf("%w: failed to retrieve secret: %v", ErrInternal, err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, tokens.Pair{}, ErrInvalidCredentials
	}

	principal, err := s.principals.FindByEmail(ctx, email)
	if err != nil {
		return nil, tokens.Pair{}, fmt.Errorf("%w: failed to load principal: %v", ErrInternal, err)
	}
	if !principal.Active {
		return nil, tokens.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, principal)
	if err != nil {
		return nil, tokens.Pair{}, err
	}
	return principal, pair, nil
}

// Authenticate resolves an access token to a live principal. The claims
// are never trusted on their own: the principal is reloaded from the
// directory so deactivation takes effect before the token expires.
//
// The returned error always wraps ErrTokenInvalid; expiry stays
// inspectable underneath via tokens.ErrExpired for internal logging.
func (s *Service) Authenticate(
	ctx context.Context,
	accessToken string,
) (
	*directory.Principal,
	error,
) {
	claims, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	principal, err := s.principals.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, fmt.Errorf("%w: principal no longer exists", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: failed to load principal: %v", ErrInternal, err)
	}
	if !principal.Active {
		return nil, fmt.Errorf("%w: principal deactivated", ErrTokenInvalid)
	}

	return principal, nil
}
