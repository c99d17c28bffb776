package secrets

import (
	"encoding/json"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igreposter"
	keyringPrefix  = "secret_"
)

// KeyringStore keeps secrets in the system keychain.
type KeyringStore struct{}

// NewKeyringStore probes the keychain and fails when it is unavailable,
// so the manager can fall through to the encrypted file.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Set(secret *Secret) error {
	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+secret.Name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Get(name string) (*Secret, error) {
	if name == "" {
		return nil, ErrInvalidSecret
	}

	data, err := keyring.Get(keyringService, keyringPrefix+name)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, ErrSecretNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var secret Secret
	if err := json.Unmarshal([]byte(data), &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}
	return &secret, nil
}

// List walks the known key names; the keyring API cannot enumerate.
func (k *KeyringStore) List() ([]*Secret, error) {
	var secrets []*Secret
	for _, name := range KnownKeys {
		if secret, err := k.Get(name); err == nil {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidSecret
	}
	if err := keyring.Delete(keyringService, keyringPrefix+name); err != nil {
		if err == keyring.ErrNotFound {
			return ErrSecretNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(name string) bool {
	secret, err := k.Get(name)
	return err == nil && secret != nil
}
