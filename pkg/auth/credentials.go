package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	errs "redditcollector/pkg/errors"
)

// Credentials are the Reddit "script" app credentials used for the OAuth password grant
type Credentials struct {
	ClientID     string    `json:"client_id" validate:"required"`
	ClientSecret string    `json:"client_secret" validate:"required"`
	Username     string    `json:"username" validate:"required,min=3,max=20"`
	Password     string    `json:"password" validate:"required"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every required field is present
func (c *Credentials) Validate() error {
	if c == nil {
		return errs.ErrInvalidCredentials
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", errs.ErrInvalidCredentials, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", errs.ErrInvalidCredentials, err)
	}
	return nil
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	Store(creds *Credentials) error
	// Retrieve gets credentials for a Reddit username; "" asks for the store's default
	Retrieve(username string) (*Credentials, error)
	List() ([]*Credentials, error)
	Delete(username string) error
	Exists(username string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the default chain: environment, system keyring, encrypted file
func NewManager() (*Manager, error) {
	stores := []CredentialStore{NewEnvironmentStore()}

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// Store validates creds and saves them in the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errs.ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them.
// An empty username returns the first default found in store order.
func (m *Manager) Retrieve(username string) (*Credentials, error) {
	if username == "" {
		return m.RetrieveDefault()
	}
	for _, store := range m.stores {
		if creds, err := store.Retrieve(username); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", errs.ErrCredentialsNotFound, username)
}

// RetrieveDefault returns the environment credentials when set, otherwise the
// most recently stored account of the first store holding any.
// Malformed environment credentials are an error.
func (m *Manager) RetrieveDefault() (*Credentials, error) {
	for _, store := range m.stores {
		creds, err := store.Retrieve("")
		if err == nil && creds != nil {
			return creds, nil
		}
		if errors.Is(err, errs.ErrInvalidCredentials) {
			return nil, err
		}
	}
	return nil, errs.ErrCredentialsNotFound
}

// List returns all stored accounts, newest first, one entry per username
func (m *Manager) List() ([]*Credentials, error) {
	byUser := make(map[string]*Credentials)
	for _, store := range m.stores {
		list, err := store.List()
		if err != nil {
			continue
		}
		for _, c := range list {
			if existing, ok := byUser[c.Username]; !ok || c.LastModified.After(existing.LastModified) {
				byUser[c.Username] = c
			}
		}
	}

	result := make([]*Credentials, 0, len(byUser))
	for _, c := range byUser {
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b *Credentials) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return strings.Compare(a.Username, b.Username)
	})
	return result, nil
}

// Delete removes credentials from every store that holds them
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else if !errors.Is(err, errs.ErrCredentialsNotFound) && !errors.Is(err, errs.ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for user: %s", errs.ErrCredentialsNotFound, username)
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "redditcollector")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "redditcollector")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "redditcollector")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "redditcollector")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of creds with the secret and password masked
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	masked := *creds
	masked.ClientSecret = maskString(creds.ClientSecret)
	masked.Password = maskString(creds.Password)
	return &masked
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
