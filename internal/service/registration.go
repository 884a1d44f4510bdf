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

// RegisterInput carries a registration request. The business fields are
// only legal when Role is provider.
type RegisterInput struct {
	Email               string             `json:"email"`
	Password            string             `json:"password"`
	FirstName           string             `json:"firstName"`
	LastName            string             `json:"lastName"`
	Role                string             `json:"role"`
	Phone               string             `json:"phone"`
	BusinessName        string             `json:"businessName"`
	BusinessDescription string             `json:"businessDescription"`
	Services            []string           `json:"services"`
	Location            directory.Location `json:"location"`
}

// Register creates a principal and opens its first session: the returned
// pair's refresh token is already in the principal's set.
func (s *Service) Register(
	ctx context.Context,
	input RegisterInput,
) (
	*directory.Principal,
	tokens.Pair,
	error,
) {
	principal, err := principalFromInput(input)
	if err != nil {
		return nil, tokens.Pair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.passwordCost)
	if err != nil {
		return nil, tokens.Pair{}, fmt.Errorf("%w: failed to hash password: %v", ErrInternal, err)
	}

	if err := s.principals.InsertPrincipal(ctx, principal, hash); err != nil {
		if errors.Is(err, directory.ErrEmailExists) {
			return nil, tokens.Pair{}, fmt.Errorf("%w: %s", ErrEmailExists, principal.Email)
		}
		return nil, tokens.Pair{}, fmt.Errorf("%w: failed to insert principal: %v", ErrInternal, err)
	}

	pair, err := s.openSession(ctx, principal)
	if err != nil {
		return nil, tokens.Pair{}, err
	}
	return principal, pair, nil
}

func principalFromInput(input RegisterInput) (*directory.Principal, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if len(input.Password) < 6 {
		return nil, fmt.Errorf("%w: password too short (min 6)", ErrValidation)
	}

	role := directory.Role(input.Role)
	if input.Role == "" {
		role = directory.RoleClient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role '%s'", ErrValidation, input.Role)
	}

	if role != directory.RoleProvider {
		return directory.NewClient(email, input.FirstName, input.LastName, input.Phone), nil
	}

	if strings.TrimSpace(input.BusinessName) == "" {
		return nil, fmt.Errorf("%w: business name required for providers", ErrValidation)
	}
	profile := directory.ProviderProfile{
		BusinessName:        input.BusinessName,
		BusinessDescription: input.BusinessDescription,
		Services:            input.Services,
		Location:            input.Location,
	}
	if profile.Services == nil {
		profile.Services = []string{}
	}
	return directory.NewProvider(email, input.FirstName, input.LastName, input.Phone, profile), nil
}

// openSession issues a token pair and records the refresh token in the
// principal's set.
func (s *Service) openSession(
	ctx context.Context,
	principal *directory.Principal,
) (
	tokens.Pair,
	error,
) {
	pair, err := s.codec.IssuePair(principal.ID, principal.Email, string(principal.Role))
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: couldn't issue token pair: %v", ErrInternal, err)
	}

	err = s.sessions.InsertRefreshToken(ctx, principal.ID, pair.Refresh, pair.RefreshExpiresAt)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: couldn't store refresh token: %v", ErrInternal, err)
	}
	return pair, nil
}
