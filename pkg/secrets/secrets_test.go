package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManagerSetGetDelete(t *testing.T) {
	mockStore := NewMockStore()
	manager := NewManagerWithStores(mockStore)

	if err := manager.Set(KeyRapidAPI, "rapid-12345-secret"); err != nil {
		t.Errorf("Failed to set secret: %v", err)
	}

	secret, err := manager.Get(KeyRapidAPI)
	if err != nil {
		t.Errorf("Failed to get secret: %v", err)
	}
	if secret.Value != "rapid-12345-secret" {
		t.Errorf("Value mismatch: got %s", secret.Value)
	}

	if got := manager.Value(KeyRapidAPI); got != "rapid-12345-secret" {
		t.Errorf("Value() mismatch: got %s", got)
	}
	if got := manager.Value(KeyOpenAI); got != "" {
		t.Errorf("Expected empty value for missing secret, got %s", got)
	}

	secrets, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list secrets: %v", err)
	}
	if len(secrets) != 1 {
		t.Errorf("Expected 1 secret, got %d", len(secrets))
	}

	if err := manager.Delete(KeyRapidAPI); err != nil {
		t.Errorf("Failed to delete secret: %v", err)
	}
	if _, err := manager.Get(KeyRapidAPI); !errors.Is(err, ErrSecretNotFound) {
		t.Error("Expected ErrSecretNotFound after deletion")
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 secrets after deletion, got %d", mockStore.Count())
	}
}

func TestManagerRejectsEmptyValues(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	if err := manager.Set("", "value"); err != ErrInvalidSecret {
		t.Error("Expected ErrInvalidSecret for empty name")
	}
	if err := manager.Set(KeyOpenAI, ""); err != ErrInvalidSecret {
		t.Error("Expected ErrInvalidSecret for empty value")
	}
}

func TestManagerFallsThroughStores(t *testing.T) {
	broken := NewMockStore()
	broken.SetError = ErrStoreUnavailable
	broken.GetError = ErrStoreUnavailable
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)

	if err := manager.Set(KeyOpenAI, "sk-test"); err != nil {
		t.Errorf("Failed to set through fallback store: %v", err)
	}
	secret, err := manager.Get(KeyOpenAI)
	if err != nil {
		t.Errorf("Failed to get through fallback store: %v", err)
	}
	if secret.Value != "sk-test" {
		t.Errorf("Value mismatch: got %s", secret.Value)
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("IGREPOSTER_PASSPHRASE", "test-passphrase")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	secret := &Secret{Name: KeyGraphAppSecret, Value: "very-secret-app-value"}
	if err := store.Set(secret); err != nil {
		t.Errorf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Get(KeyGraphAppSecret)
	if err != nil {
		t.Errorf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Value != secret.Value {
		t.Error("Value mismatch after encryption/decryption")
	}

	// The secret must not appear in plaintext on disk.
	content, err := os.ReadFile(filepath.Join(dir, "secrets.enc"))
	if err != nil {
		t.Fatalf("Failed to read encrypted file: %v", err)
	}
	if strings.Contains(string(content), "very-secret-app-value") {
		t.Error("File contains plaintext secret value")
	}

	if err := store.Delete(KeyGraphAppSecret); err != nil {
		t.Errorf("Failed to delete secret: %v", err)
	}
	if store.Exists(KeyGraphAppSecret) {
		t.Error("Secret still exists after deletion")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("RAPIDAPI_KEY", "env-rapid-key")

	store := NewEnvironmentStore()

	secret, err := store.Get(KeyRapidAPI)
	if err != nil {
		t.Errorf("Failed to retrieve from environment: %v", err)
	}
	if secret.Value != "env-rapid-key" {
		t.Errorf("Value mismatch: got %s, want env-rapid-key", secret.Value)
	}

	if _, err := store.Get("unknown_key"); !errors.Is(err, ErrSecretNotFound) {
		t.Error("Expected ErrSecretNotFound for unknown key")
	}
	if err := store.Set(&Secret{Name: KeyRapidAPI, Value: "x"}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestSanitizeMasksValue(t *testing.T) {
	masked := Sanitize(&Secret{Name: KeyOpenAI, Value: "sk-abcdefghijklmnop"})
	if masked.Value == "sk-abcdefghijklmnop" {
		t.Error("Value should be masked")
	}
	if !strings.HasPrefix(masked.Value, "sk-a") {
		t.Errorf("Mask should keep a short prefix, got %s", masked.Value)
	}
	if masked.Name != KeyOpenAI {
		t.Error("Name should not be masked")
	}

	short := Sanitize(&Secret{Name: KeyOpenAI, Value: "tiny"})
	if short.Value != "********" {
		t.Errorf("Short values should be fully masked, got %s", short.Value)
	}
}
