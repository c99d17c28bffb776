package secrets

import "sync"

// MockStore implements Store for testing.
type MockStore struct {
	secrets map[string]*Secret
	mu      sync.RWMutex

	// Error injection for testing
	SetError    error
	GetError    error
	ListError   error
	DeleteError error
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{secrets: make(map[string]*Secret)}
}

func (m *MockStore) Set(secret *Secret) error {
	if m.SetError != nil {
		return m.SetError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}
	secretCopy := *secret
	m.secrets[secret.Name] = &secretCopy
	return nil
}

func (m *MockStore) Get(name string) (*Secret, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		return nil, ErrInvalidSecret
	}
	secret, exists := m.secrets[name]
	if !exists {
		return nil, ErrSecretNotFound
	}
	secretCopy := *secret
	return &secretCopy, nil
}

func (m *MockStore) List() ([]*Secret, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var secrets []*Secret
	for _, secret := range m.secrets {
		secretCopy := *secret
		secrets = append(secrets, &secretCopy)
	}
	return secrets, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return ErrInvalidSecret
	}
	if _, exists := m.secrets[name]; !exists {
		return ErrSecretNotFound
	}
	delete(m.secrets, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.secrets[name]
	return exists
}

// Count returns the number of stored secrets.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
