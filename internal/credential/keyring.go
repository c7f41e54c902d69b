// Package credential keeps secrets such as the AI API key in the OS keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"

	"github.com/nhle/studytrack/internal/model"
)

const (
	serviceName = "studytrack"

	// AIKey is the keyring key of the AI gateway API key.
	AIKey = "ai_api_key"

	// EnvAIKey overrides the stored AI key when set.
	EnvAIKey = "STUDYTRACK_AI_KEY"
)

// ErrNotSet is returned when a credential has not been stored.
var ErrNotSet = errors.New("credential not set")

// Vault reads and writes credentials in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// Open opens the system keyring. The encrypted file backend, used when no
// OS keyring is available, stores its files under dir; an empty dir selects
// ~/.config/studytrack/credentials.
func Open(dir string) (*Vault, error) {
	if dir == "" {
		dir = defaultDir()
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("studytrack-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Vault{ring: ring}, nil
}

// NewVault wraps an already opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "credentials")
	}
	return filepath.Join(home, ".config", "studytrack", "credentials")
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("credential %q: %w", key, ErrNotSet)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return &model.ValidationError{Field: key, Message: "must not be empty"}
	}

	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "studytrack " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential. Removing a missing credential is not an
// error.
func (v *Vault) Delete(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// AIKey returns the AI API key from the environment, falling back to the
// keyring. v may be nil, in which case only the environment is consulted.
func (v *Vault) AIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAIKey)); key != "" {
		return key, nil
	}
	if v == nil {
		return "", fmt.Errorf("credential %q: %w", AIKey, ErrNotSet)
	}
	return v.Get(AIKey)
}
