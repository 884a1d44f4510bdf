// Package service implements the business logic layer for the servedi auth
// server: registration, credential checks, token issuance and rotation,
// session revocation, and principal management. Persistence is delegated to
// the store interfaces so the layer can be tested against any backend.
package service

import (
	"errors"

	"git.sr.ht/~jakintosh/servedi/internal/tokens"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrValidation         = errors.New("invalid input")
	ErrInternal           = errors.New("internal error")
)

// Service coordinates authentication, registration, and session operations.
type Service struct {
	principals   PrincipalStore
	sessions     SessionStore
	codec        *tokens.Codec
	passwordCost int
}

// New wires the service. passwordCost is the bcrypt cost; pass 0 for
// bcrypt.DefaultCost (tests pass bcrypt.MinCost to stay fast).
func New(
	principals PrincipalStore,
	sessions SessionStore,
	codec *tokens.Codec,
	passwordCost int,
) *Service {
	if passwordCost == 0 {
		passwordCost = bcrypt.DefaultCost
	}
	return &Service{
		principals:   principals,
		sessions:     sessions,
		codec:        codec,
		passwordCost: passwordCost,
	}
}

func (s *Service) Codec() *tokens.Codec {
	return s.codec
}
