// Package testutil provides test environment setup and utilities for internal package tests.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/servedi/internal/api"
	"git.sr.ht/~jakintosh/servedi/internal/directory"
	"git.sr.ht/~jakintosh/servedi/internal/service"
	"git.sr.ht/~jakintosh/servedi/internal/tokens"
	"golang.org/x/crypto/bcrypt"
)

// fixed secrets keep test tokens reproducible; never use outside tests
var testSecrets = tokens.StaticSecrets{
	Access:  []byte("test-access-secret-0123456789abcdef"),
	Refresh: []byte("test-refresh-secret-0123456789abcdef"),
}

const TestIssuer = "test.servedi.local"

// TestEnv provides all dependencies needed for testing, with a
// controllable clock wired into the token codec so expiry can be driven
// without sleeping.
type TestEnv struct {
	DB      *directory.SQLiteStore
	Service *service.Service
	Codec   *tokens.Codec
	Router  http.Handler

	mu  sync.Mutex
	now time.Time
}

// SetupTestEnv creates an isolated test environment with in-memory SQLite.
func SetupTestEnv(
	t *testing.T,
) *TestEnv {
	t.Helper()

	env := &TestEnv{now: time.Now()}

	codec, err := tokens.NewCodec(tokens.Config{
		Secrets: testSecrets,
		Issuer:  TestIssuer,
		Now:     env.Now,
	})
	if err != nil {
		t.Fatalf("failed to create test codec: %v", err)
	}
	env.Codec = codec

	db := directory.NewSQLiteStore(":memory:")
	env.DB = db
	env.Service = service.New(db, db, codec, bcrypt.MinCost)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return env
}

// SetupTestEnvWithRouter creates TestEnv and configures the API router.
func SetupTestEnvWithRouter(
	t *testing.T,
) *TestEnv {
	t.Helper()
	env := SetupTestEnv(t)
	a := api.New(env.Service, false)
	env.Router = a.Router()
	return env
}

// Now is the env's clock; pass it wherever a time source is injected.
func (env *TestEnv) Now() time.Time {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.now
}

// Advance moves the env's clock forward, aging every outstanding token.
func (env *TestEnv) Advance(d time.Duration) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.now = env.now.Add(d)
}

// RegisterClient registers a client-role test account and returns the
// principal with its initial token pair.
func (env *TestEnv) RegisterClient(
	t *testing.T,
	email string,
	password string,
) (*directory.Principal, tokens.Pair) {
	t.Helper()
	principal, pair, err := env.Service.Register(context.Background(), service.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "Client",
		Role:      string(directory.RoleClient),
	})
	if err != nil {
		t.Fatalf("failed to register test client: %v", err)
	}
	return principal, pair
}

// RegisterProvider registers a provider-role test account.
func (env *TestEnv) RegisterProvider(
	t *testing.T,
	email string,
	password string,
	businessName string,
) (*directory.Principal, tokens.Pair) {
	t.Helper()
	principal, pair, err := env.Service.Register(context.Background(), service.RegisterInput{
		Email:        email,
		Password:     password,
		FirstName:    "Test",
		LastName:     "Provider",
		Role:         string(directory.RoleProvider),
		BusinessName: businessName,
		Services:     []string{"testing"},
	})
	if err != nil {
		t.Fatalf("failed to register test provider: %v", err)
	}
	return principal, pair
}

// IssuePair issues a token pair outside any session, for forged-state
// tests (valid signature, not in the store).
func (env *TestEnv) IssuePair(
	t *testing.T,
	principal *directory.Principal,
) tokens.Pair {
	t.Helper()
	pair, err := env.Codec.IssuePair(principal.ID, principal.Email, string(principal.Role))
	if err != nil {
		t.Fatalf("failed to issue test token pair: %v", err)
	}
	return pair
}
