// Package testharness spawns a servedi-testserver for integration tests in
// other repositories: it starts the binary, reads the JSON contract from
// stdout, and hands back the base URL and seeded credentials. Cleanup is
// registered with t.Cleanup.
package testharness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

// Config holds configuration for starting the test harness.
type Config struct {
	Issuer     string
	Users      []User
	ListenAddr string
	DataDir    string
	Keep       bool
	BinaryPath string
	Quiet      bool
}

// User holds seeded account credentials. An empty Role seeds a client.
type User struct {
	Email    string
	Password string
	Role     string
}

// Harness represents a running servedi-testserver instance.
type Harness struct {
	BaseURL string
	Issuer  string
	DataDir string
	DBPath  string
	KeyPath string
	Users   []User

	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// outputContract matches the JSON structure from servedi-testserver
type outputContract struct {
	BaseURL string       `json:"base_url"`
	Issuer  string       `json:"issuer"`
	DataDir string       `json:"data_dir"`
	DBPath  string       `json:"db_path"`
	KeyPath string       `json:"key_path"`
	Users   []outputUser `json:"users"`
}

type outputUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Start spawns a servedi-testserver and returns a handle to it. The test
// is skipped when no binary can be found, so suites stay runnable without
// a built server.
func Start(t *testing.T, cfg Config) *Harness {
	t.Helper()

	binaryPath := findBinary(cfg.BinaryPath)
	if binaryPath == "" {
		t.Skip("servedi-testserver binary not found (check PATH or set Config.BinaryPath or SERVEDI_TESTSERVER_BIN)")
	}

	if len(cfg.Users) == 0 {
		cfg.Users = []User{{Email: "test@example.test", Password: "password123"}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binaryPath, buildArgs(cfg)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stdout pipe: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("failed to start servedi-testserver: %v", err)
	}

	// the first stdout line is the JSON contract
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		cancel()
		cmd.Wait()
		t.Fatal("failed to read JSON contract from servedi-testserver")
	}

	var contract outputContract
	if err := json.Unmarshal(scanner.Bytes(), &contract); err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse JSON contract: %v", err)
	}

	if !cfg.Quiet {
		go func() {
			for scanner.Scan() {
				t.Logf("[servedi-testserver] %s", scanner.Text())
			}
		}()
		go func() {
			stderrScanner := bufio.NewScanner(stderr)
			for stderrScanner.Scan() {
				t.Logf("[servedi-testserver stderr] %s", stderrScanner.Text())
			}
		}()
	}

	harness := &Harness{
		BaseURL: contract.BaseURL,
		Issuer:  contract.Issuer,
		DataDir: contract.DataDir,
		DBPath:  contract.DBPath,
		KeyPath: contract.KeyPath,
		Users:   make([]User, len(contract.Users)),
		cmd:     cmd,
		cancel:  cancel,
	}
	for i, user := range contract.Users {
		harness.Users[i] = User(user)
	}

	t.Cleanup(func() {
		if err := harness.Close(); err != nil {
			t.Logf("warning: harness cleanup failed: %v", err)
		}
	})

	return harness
}

// Close terminates the servedi-testserver process.
func (h *Harness) Close() error {
	if h.cancel != nil {
		h.cancel()
	}
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		if err := h.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("force kill: %w", err)
		}
		return fmt.Errorf("timeout waiting for graceful shutdown, process killed")
	}
}

func findBinary(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if envPath := os.Getenv("SERVEDI_TESTSERVER_BIN"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if pathBinary, err := exec.LookPath("servedi-testserver"); err == nil {
		return pathBinary
	}

	return ""
}

func buildArgs(cfg Config) []string {
	args := []string{}

	if cfg.Issuer != "" {
		args = append(args, "--issuer", cfg.Issuer)
	}
	if cfg.ListenAddr != "" {
		args = append(args, "--listen", cfg.ListenAddr)
	}
	if cfg.DataDir != "" {
		args = append(args, "--data-dir", cfg.DataDir)
	}
	if cfg.Keep {
		args = append(args, "--keep")
	}
	if cfg.Quiet {
		args = append(args, "--quiet")
	}

	for _, user := range cfg.Users {
		spec := fmt.Sprintf("%s:%s", user.Email, user.Password)
		if user.Role != "" {
			spec += ":" + user.Role
		}
		args = append(args, "--user", spec)
	}

	return args
}
