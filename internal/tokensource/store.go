package tokensource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrNoCredential is returned when the configured store holds no credential.
var ErrNoCredential = errors.New("no credential stored")

// Store reads and writes the upstream credential. Implementations must
// treat an empty write as a request to clear the store.
type Store interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, credential string) error
}

// EnvStore reads the credential from an environment variable. It is
// read-only; login flows need a file or keyring store.
type EnvStore struct {
	// Variable is the environment variable name holding the credential.
	Variable string
}

// Read implements Store.
func (s *EnvStore) Read(_ context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(s.Variable))
	if v == "" {
		return "", fmt.Errorf("%w: environment variable %s is empty", ErrNoCredential, s.Variable)
	}
	return v, nil
}

// Write implements Store. Environment storage cannot be written.
func (s *EnvStore) Write(_ context.Context, _ string) error {
	return fmt.Errorf("env credential storage is read-only")
}

// FileStore keeps the credential in a mode-0600 file.
type FileStore struct {
	Path string
}

// Read implements Store.
func (s *FileStore) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNoCredential, s.Path)
		}
		return "", fmt.Errorf("read credential file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoCredential, s.Path)
	}
	return v, nil
}

// Write implements Store. An empty credential removes the file.
func (s *FileStore) Write(_ context.Context, credential string) error {
	if credential == "" {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove credential file: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(credential+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	return nil
}

// KeyringStore keeps the credential in the operating system keyring.
type KeyringStore struct {
	Service string
	User    string
}

// Read implements Store.
func (s *KeyringStore) Read(_ context.Context) (string, error) {
	v, err := keyring.Get(s.Service, s.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: keyring entry %s/%s not found", ErrNoCredential, s.Service, s.User)
		}
		return "", fmt.Errorf("read keyring: %w", err)
	}
	if v == "" {
		return "", fmt.Errorf("%w: keyring entry %s/%s is empty", ErrNoCredential, s.Service, s.User)
	}
	return v, nil
}

// Write implements Store. An empty credential deletes the keyring entry.
func (s *KeyringStore) Write(_ context.Context, credential string) error {
	if credential == "" {
		if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("delete keyring entry: %w", err)
		}
		return nil
	}
	if err := keyring.Set(s.Service, s.User, credential); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	return nil
}
