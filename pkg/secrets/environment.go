package secrets

import (
	"os"
	"time"
)

// envVarForKey maps secret names to their environment variables.
var envVarForKey = map[string]string{
	KeyRapidAPI:       "RAPIDAPI_KEY",
	KeyOpenAI:         "OPENAI_API_KEY",
	KeyGraphAppID:     "INSTAGRAM_APP_ID",
	KeyGraphAppSecret: "INSTAGRAM_APP_SECRET",
}

// EnvironmentStore reads secrets from environment variables. It is
// read-only and sits last in the manager's fallback chain.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Set is not supported for environment variables.
func (e *EnvironmentStore) Set(secret *Secret) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Get(name string) (*Secret, error) {
	envVar, ok := envVarForKey[name]
	if !ok {
		return nil, ErrSecretNotFound
	}
	value := os.Getenv(envVar)
	if value == "" {
		return nil, ErrSecretNotFound
	}
	return &Secret{Name: name, Value: value, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) List() ([]*Secret, error) {
	var secrets []*Secret
	for _, name := range KnownKeys {
		if secret, err := e.Get(name); err == nil {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	secret, err := e.Get(name)
	return err == nil && secret != nil
}
