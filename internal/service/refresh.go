package service

import (
	"context"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
)

// Refresh consumes a refresh token and issues a fresh pair. A token is
// accepted iff it verifies cryptographically, its literal value is in the
// owning principal's set, and the principal is active. All failure modes
// collapse to ErrTokenInvalid so a stolen token yields no signal about why
// it stopped working.
//
// Rotation is remove-old then add-new as two independent writes. Two
// concurrent refreshes of the same token can both pass the membership
// check; the result is a wasted extra pair, not a security hole, since
// both callers held the then-valid token.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (
	tokens.Pair,
	error,
) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	principal, err := s.principals.FindByID(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return tokens.Pair{}, fmt.Errorf("%w: principal no longer exists", ErrTokenInvalid)
		}
		return tokens.Pair{}, fmt.Errorf("%w: failed to load principal: %v", ErrInternal, err)
	}
	if !principal.Active {
		return tokens.Pair{}, fmt.Errorf("%w: principal deactivated", ErrTokenInvalid)
	}

	held, err := s.sessions.ContainsRefreshToken(ctx, principal.ID, refreshToken)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: failed to check refresh token: %v", ErrInternal, err)
	}
	if !held {
		return tokens.Pair{}, fmt.Errorf("%w: refresh token not in session set", ErrTokenInvalid)
	}

	pair, err := s.codec.IssuePair(principal.ID, principal.Email, string(principal.Role))
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: couldn't issue token pair: %v", ErrInternal, err)
	}

	if _, err := s.sessions.DeleteRefreshToken(ctx, principal.ID, refreshToken); err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: couldn't consume refresh token: %v", ErrInternal, err)
	}
	err = s.sessions.InsertRefreshToken(ctx, principal.ID, pair.Refresh, pair.RefreshExpiresAt)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: couldn't store refresh token: %v", ErrInternal, err)
	}

	return pair, nil
}

// Logout removes the presented refresh token from the principal's set.
// Removing an absent token is not an error.
func (s *Service) Logout(
	ctx context.Context,
	principalID string,
	refreshToken string,
) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := s.sessions.DeleteRefreshToken(ctx, principalID, refreshToken); err != nil {
		return fmt.Errorf("%w: failed to delete refresh token: %v", ErrInternal, err)
	}
	return nil
}
