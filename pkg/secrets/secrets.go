// Package secrets stores the service's upstream API credentials: the
// scraper backend key, the language-model key and the Graph API app pair.
// It layers the system keychain, an encrypted file, and read-only
// environment variables, in that order.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Known secret names.
const (
	KeyRapidAPI       = "rapidapi_key"
	KeyOpenAI         = "openai_api_key"
	KeyGraphAppID     = "instagram_app_id"
	KeyGraphAppSecret = "instagram_app_secret"
)

// KnownKeys lists every secret the service understands.
var KnownKeys = []string{KeyRapidAPI, KeyOpenAI, KeyGraphAppID, KeyGraphAppSecret}

// Secret is one named credential.
type Secret struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for one secret backend.
type Store interface {
	// Set saves a secret.
	Set(secret *Secret) error

	// Get retrieves a secret by name.
	Get(name string) (*Secret, error)

	// List returns all stored secrets.
	List() ([]*Secret, error)

	// Delete removes a secret by name.
	Delete(name string) error

	// Exists checks whether a secret is present.
	Exists(name string) bool
}

var (
	ErrSecretNotFound   = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Manager layers secret backends with fallback.
type Manager struct {
	stores []Store
}

// NewManager creates a manager over the available backends: keychain when
// present, then the encrypted file, then environment variables.
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit backends.
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Set stores the secret in the first backend that accepts it.
func (m *Manager) Set(name, value string) error {
	if name == "" || value == "" {
		return ErrInvalidSecret
	}

	secret := &Secret{Name: name, Value: value, LastModified: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		if err := store.Set(secret); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return errors.New("no available secret stores")
}

// Get returns the secret from the first backend that has it.
func (m *Manager) Get(name string) (*Secret, error) {
	for _, store := range m.stores {
		if secret, err := store.Get(name); err == nil && secret != nil {
			return secret, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
}

// Value returns the secret's value, or empty when absent.
func (m *Manager) Value(name string) string {
	secret, err := m.Get(name)
	if err != nil {
		return ""
	}
	return secret.Value
}

// List merges secrets across backends, keeping the most recently
// modified version of each name.
func (m *Manager) List() ([]*Secret, error) {
	merged := make(map[string]*Secret)
	for _, store := range m.stores {
		secrets, err := store.List()
		if err != nil {
			continue
		}
		for _, secret := range secrets {
			if existing, ok := merged[secret.Name]; !ok || secret.LastModified.After(existing.LastModified) {
				merged[secret.Name] = secret
			}
		}
	}

	var result []*Secret
	for _, secret := range merged {
		result = append(result, secret)
	}
	return result, nil
}

// Delete removes the secret from every backend that holds it.
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}
	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete secret: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return nil
}

// Sanitize returns a copy with the value masked for display.
func Sanitize(secret *Secret) *Secret {
	if secret == nil {
		return nil
	}
	return &Secret{
		Name:         secret.Name,
		Value:        maskString(secret.Value),
		LastModified: secret.LastModified,
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igreposter")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igreposter")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igreposter")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igreposter")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}
