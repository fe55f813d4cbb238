package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/zalando/go-keyring"
	errs "redditcollector/pkg/errors"
)

const (
	keyringService = "redditcollector"
	keyringPrefix  = "reddit_"
	// keyringIndex lists stored usernames, since the keyring cannot enumerate keys
	keyringIndex = "index"
)

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a store if the system keyring accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(creds *Credentials) error {
	if creds == nil || creds.Username == "" {
		return errs.ErrInvalidCredentials
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+creds.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	names := k.index()
	if !slices.Contains(names, creds.Username) {
		names = append(names, creds.Username)
	}
	return k.saveIndex(names)
}

// Retrieve gets credentials from the keychain; "" returns the most recently stored account
func (k *KeyringStore) Retrieve(username string) (*Credentials, error) {
	if username == "" {
		list, _ := k.List()
		if len(list) == 0 {
			return nil, errs.ErrCredentialsNotFound
		}
		latest := list[0]
		for _, c := range list[1:] {
			if c.LastModified.After(latest.LastModified) {
				latest = c
			}
		}
		return latest, nil
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, errs.ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

func (k *KeyringStore) List() ([]*Credentials, error) {
	var list []*Credentials
	for _, name := range k.index() {
		if creds, err := k.Retrieve(name); err == nil {
			list = append(list, creds)
		}
	}
	return list, nil
}

func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return errs.ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errs.ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	names := slices.DeleteFunc(k.index(), func(n string) bool { return n == username })
	return k.saveIndex(names)
}

func (k *KeyringStore) Exists(username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+username)
	return err == nil
}

func (k *KeyringStore) index() []string {
	raw, err := keyring.Get(keyringService, keyringIndex)
	if err != nil || raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func (k *KeyringStore) saveIndex(names []string) error {
	if len(names) == 0 {
		err := keyring.Delete(keyringService, keyringIndex)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to update keyring index: %w", err)
		}
		return nil
	}
	if err := keyring.Set(keyringService, keyringIndex, strings.Join(names, "\n")); err != nil {
		return fmt.Errorf("failed to update keyring index: %w", err)
	}
	return nil
}
