package service

import (
	"context"
	"errors"
	"fmt"

	"git.sr.ht/~jakintosh/servedi/internal/directory"
)

// GetPrincipal returns an active principal by id. Missing and deactivated
// principals are both reported as not found.
func (s *Service) GetPrincipal(
	ctx context.Context,
	id string,
) (
	*directory.Principal,
	error,
) {
	principal, err := s.principals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: failed to load principal: %v", ErrInternal, err)
	}
	if !principal.Active {
		return nil, ErrPrincipalNotFound
	}
	return principal, nil
}

// ListPrincipals returns active principals matching the filter and the
// total match count. An unknown role filter is ignored rather than
// rejected.
func (s *Service) ListPrincipals(
	ctx context.Context,
	filter directory.Filter,
) (
	[]*directory.Principal,
	int,
	error,
) {
	if !filter.Role.Valid() {
		filter.Role = ""
	}
	principals, total, err := s.principals.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to list principals: %v", ErrInternal, err)
	}
	return principals, total, nil
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	id string,
	update directory.ProfileUpdate,
) (
	*directory.Principal,
	error,
) {
	principal, err := s.principals.UpdateProfile(ctx, id, update)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: failed to update profile: %v", ErrInternal, err)
	}
	return principal, nil
}

// UpdateBusiness replaces a provider's business payload. The store only
// matches provider rows, so a client id reports not found.
func (s *Service) UpdateBusiness(
	ctx context.Context,
	id string,
	profile directory.ProviderProfile,
) (
	*directory.Principal,
	error,
) {
	if profile.BusinessName == "" {
		return nil, fmt.Errorf("%w: business name required", ErrValidation)
	}
	principal, err := s.principals.UpdateBusiness(ctx, id, profile)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("%w: failed to update business: %v", ErrInternal, err)
	}
	return principal, nil
}

// DeactivateAccount soft-deletes the principal. The store clears the
// refresh-token set in the same call, and the next live check rejects any
// outstanding access token.
func (s *Service) DeactivateAccount(
	ctx context.Context,
	id string,
) error {
	if err := s.principals.Deactivate(ctx, id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrPrincipalNotFound
		}
		return fmt.Errorf("%w: failed to deactivate principal: %v", ErrInternal, err)
	}
	return nil
}
