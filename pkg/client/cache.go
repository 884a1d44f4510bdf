package client

import (
	"errors"
	"os"
)

// TokenCache is the persisted slot for the access token, so a restarted
// process can resume its session without a fresh login. Implementations
// must tolerate concurrent use.
type TokenCache interface {
	Load() (string, error)
	Store(token string) error
	Clear() error
}

// FileCache persists the access token to a single file with owner-only
// permissions.
type FileCache struct {
	Path string
}

func (c *FileCache) Load() (string, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *FileCache) Store(token string) error {
	return os.WriteFile(c.Path, []byte(token), 0600)
}

func (c *FileCache) Clear() error {
	err := os.Remove(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
