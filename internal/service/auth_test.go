package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/servedi/internal/service"
	"git.sr.ht/~jakintosh/servedi/internal/testutil"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
)

func TestLogin(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()
	registered, _ := env.RegisterClient(t, "ada@example.com", "secret123")

	principal, pair, err := env.Service.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if principal.ID != registered.ID {
		t.Error("login resolved to wrong principal")
	}

	held, err := env.DB.ContainsRefreshToken(ctx, principal.ID, pair.Refresh)
	if err != nil {
		t.Fatalf("ContainsRefreshToken failed: %v", err)
	}
	if !held {
		t.Error("expected login refresh token in session set")
	}
}

func TestLogin_NormalizesEmail(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterClient(t, "ada@example.com", "secret123")

	if _, _, err := env.Service.Login(context.Background(), "  ADA@Example.COM ", "secret123"); err != nil {
		t.Errorf("expected case-insensitive login, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	env.RegisterClient(t, "ada@example.com", "secret123")

	_, _, err := env.Service.Login(context.Background(), "ada@example.com", "wrong-password")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// must be indistinguishable from a wrong password
	_, _, err := env.Service.Login(context.Background(), "nobody@example.com", "secret123")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()
	principal, _ := env.RegisterClient(t, "ada@example.com", "secret123")

	if err := env.Service.DeactivateAccount(ctx, principal.ID); err != nil {
		t.Fatalf("DeactivateAccount failed: %v", err)
	}

	_, _, err := env.Service.Login(ctx, "ada@example.com", "secret123")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_EmptyInput(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	_, _, err := env.Service.Login(context.Background(), "", "")
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	principal, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	authed, err := env.Service.Authenticate(context.Background(), pair.Access)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if authed.ID != principal.ID {
		t.Error("authenticated wrong principal")
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	env.Advance(env.Codec.AccessLifetime() + time.Second)

	_, err := env.Service.Authenticate(context.Background(), pair.Access)
	if !errors.Is(err, service.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	// expiry stays inspectable underneath for logging
	if !errors.Is(err, tokens.ErrExpired) {
		t.Errorf("expected expiry cause preserved, got %v", err)
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	_, err := env.Service.Authenticate(context.Background(), "not-a-token")
	if !errors.Is(err, service.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticate_RefreshTokenRejected(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	_, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	// a refresh token must never pass as an access token
	_, err := env.Service.Authenticate(context.Background(), pair.Refresh)
	if !errors.Is(err, service.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticate_DeactivatedPrincipal(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()
	principal, pair := env.RegisterClient(t, "ada@example.com", "secret123")

	if err := env.Service.DeactivateAccount(ctx, principal.ID); err != nil {
		t.Fatalf("DeactivateAccount failed: %v", err)
	}

	// the token hasn't expired, but the live check must reject it
	_, err := env.Service.Authenticate(ctx, pair.Access)
	if !errors.Is(err, service.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for deactivated principal, got %v", err)
	}
}
