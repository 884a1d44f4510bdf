// Package keys loads the HMAC signing secrets from a JSON key file and keeps
// them fresh by watching the file for changes, so secrets can be rotated
// without a restart.
package keys

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// keyFile is the on-disk JSON shape. Secrets are base64 (std encoding).
type keyFile struct {
	AccessSecret  string `json:"accessSecret"`
	RefreshSecret string `json:"refreshSecret"`
}

// Ring holds the currently loaded secrets. It implements
// tokens.SecretSource and is safe for concurrent use; Reload swaps both
// secrets together.
type Ring struct {
	path string

	mu      sync.RWMutex
	access  []byte
	refresh []byte
}

func Load(path string) (*Ring, error) {
	r := &Ring{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Ring) AccessSecret() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.access
}

func (r *Ring) RefreshSecret() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refresh
}

// Reload re-reads the key file. On any error the previous secrets stay
// in effect.
func (r *Ring) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("couldn't read key file '%s': %v", r.path, err)
	}

	var file keyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("couldn't parse key file '%s': %v", r.path, err)
	}

	access, err := decodeSecret(file.AccessSecret)
	if err != nil {
		return fmt.Errorf("bad access secret in '%s': %v", r.path, err)
	}
	refresh, err := decodeSecret(file.RefreshSecret)
	if err != nil {
		return fmt.Errorf("bad refresh secret in '%s': %v", r.path, err)
	}

	r.mu.Lock()
	r.access = access
	r.refresh = refresh
	r.mu.Unlock()
	return nil
}

func decodeSecret(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("secret missing")
	}
	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %v", err)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("secret too short: %d bytes", len(secret))
	}
	return secret, nil
}

// WriteFile generates a key file at path from raw secrets. Used by the
// test server and deployment tooling.
func WriteFile(path string, access []byte, refresh []byte) error {
	file := keyFile{
		AccessSecret:  base64.StdEncoding.EncodeToString(access),
		RefreshSecret: base64.StdEncoding.EncodeToString(refresh),
	}
	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("couldn't encode key file: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("couldn't write key file '%s': %v", path, err)
	}
	return nil
}
