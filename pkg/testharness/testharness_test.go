package testharness

import (
	"context"
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/servedi/pkg/client"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	args := buildArgs(Config{
		Issuer:     "harness.test",
		ListenAddr: "127.0.0.1:0",
		DataDir:    "/tmp/data",
		Keep:       true,
		Quiet:      true,
		Users: []User{
			{Email: "alice@example.test", Password: "password123"},
			{Email: "grace@example.test", Password: "secret456", Role: "provider"},
		},
	})

	want := []string{
		"--issuer", "harness.test",
		"--listen", "127.0.0.1:0",
		"--data-dir", "/tmp/data",
		"--keep",
		"--quiet",
		"--user", "alice@example.test:password123",
		"--user", "grace@example.test:secret456:provider",
	}
	if len(args) != len(want) {
		t.Fatalf("expected %d args, got %d: %v", len(want), len(args), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: expected '%s', got '%s'", i, want[i], args[i])
		}
	}
}

func TestStart(t *testing.T) {
	// skips when no servedi-testserver binary is available
	h := Start(t, Config{
		Issuer: "harness.test",
		Users: []User{
			{Email: "alice@example.test", Password: "password123"},
			{Email: "grace@example.test", Password: "secret456", Role: "provider"},
		},
		Quiet: true,
	})

	if h.BaseURL == "" {
		t.Error("BaseURL is empty")
	}
	if h.Issuer != "harness.test" {
		t.Errorf("expected Issuer 'harness.test', got %s", h.Issuer)
	}
	if h.DBPath == "" || h.KeyPath == "" {
		t.Error("expected data paths in contract")
	}
	if len(h.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(h.Users))
	}
	if h.Users[0].Email != "alice@example.test" || h.Users[0].Password != "password123" {
		t.Error("first user credentials don't match")
	}
	if h.Users[1].Role != "provider" {
		t.Errorf("expected second user role 'provider', got '%s'", h.Users[1].Role)
	}

	// the seeded account can log in through the client library
	session, err := client.New(client.Config{BaseURL: h.BaseURL})
	if err != nil {
		t.Fatalf("client.New failed: %v", err)
	}

	principal, err := session.Login(context.Background(), h.Users[0].Email, h.Users[0].Password)
	if err != nil {
		t.Fatalf("seeded user login failed: %v", err)
	}
	if principal.Email != h.Users[0].Email {
		t.Errorf("unexpected principal '%s'", principal.Email)
	}

	// anonymous provider listing is reachable
	resp, err := http.Get(h.BaseURL + "/api/users/providers")
	if err != nil {
		t.Fatalf("failed to connect to test server: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestStartWithDefaults(t *testing.T) {
	h := Start(t, Config{Quiet: true})

	if len(h.Users) != 1 {
		t.Fatalf("expected 1 default user, got %d", len(h.Users))
	}
	if h.Users[0].Email != "test@example.test" || h.Users[0].Password != "password123" {
		t.Error("default user credentials don't match")
	}
}
