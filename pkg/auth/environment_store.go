package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	errs "redditcollector/pkg/errors"
)

// CredentialsEnvVar holds a JSON array of credential objects; the first is the default
const CredentialsEnvVar = "REDDIT_API_CREDENTIALS"

// EnvironmentStore reads credentials from REDDIT_API_CREDENTIALS. It is read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(creds *Credentials) error {
	return errs.ErrStoreUnavailable
}

// ParseCredentialsJSON decodes a JSON array of credentials and validates each entry
func ParseCredentialsJSON(raw string) ([]*Credentials, error) {
	var list []*Credentials
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %s is not a JSON array: %v", errs.ErrInvalidCredentials, CredentialsEnvVar, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", errs.ErrInvalidCredentials, CredentialsEnvVar)
	}
	for i, c := range list {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return list, nil
}

func (e *EnvironmentStore) load() ([]*Credentials, error) {
	raw := strings.TrimSpace(os.Getenv(CredentialsEnvVar))
	if raw == "" {
		return nil, errs.ErrCredentialsNotFound
	}
	return ParseCredentialsJSON(raw)
}

func (e *EnvironmentStore) Retrieve(username string) (*Credentials, error) {
	list, err := e.load()
	if err != nil {
		return nil, err
	}
	if username == "" {
		return list[0], nil
	}
	for _, c := range list {
		if strings.EqualFold(c.Username, username) {
			return c, nil
		}
	}
	return nil, errs.ErrCredentialsNotFound
}

func (e *EnvironmentStore) List() ([]*Credentials, error) {
	list, err := e.load()
	if err != nil {
		return []*Credentials{}, nil
	}
	return list, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return errs.ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
