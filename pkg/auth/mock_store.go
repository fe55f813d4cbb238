package auth

import (
	"sync"

	errs "redditcollector/pkg/errors"
)

// MockStore is an in-memory CredentialStore for tests, with error injection
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]*Credentials
	order    []string

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]*Credentials)}
}

func (m *MockStore) Store(creds *Credentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if creds == nil || creds.Username == "" {
		return errs.ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[creds.Username]; !ok {
		m.order = append(m.order, creds.Username)
	}
	c := *creds
	m.accounts[creds.Username] = &c
	return nil
}

// Retrieve returns a copy; "" returns the first stored account
func (m *MockStore) Retrieve(username string) (*Credentials, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if username == "" {
		if len(m.order) == 0 {
			return nil, errs.ErrCredentialsNotFound
		}
		username = m.order[0]
	}
	creds, ok := m.accounts[username]
	if !ok {
		return nil, errs.ErrCredentialsNotFound
	}
	c := *creds
	return &c, nil
}

func (m *MockStore) List() ([]*Credentials, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Credentials, 0, len(m.order))
	for _, name := range m.order {
		c := *m.accounts[name]
		list = append(list, &c)
	}
	return list, nil
}

func (m *MockStore) Delete(username string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return errs.ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	for i, name := range m.order {
		if name == username {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockStore) Exists(username string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[username]
	return ok
}

// Count returns the number of stored accounts
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// NewMockManager creates a Manager backed by a single MockStore
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return &Manager{stores: []CredentialStore{store}}, store
}

// NewManagerWithStores creates a Manager over an explicit store chain
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}
