package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// DefaultProfile names the token used when no profile is given
const DefaultProfile = "default"

// Token is a catalog API access token saved under a profile name
type Token struct {
	Profile      string    `json:"profile"`
	AccessToken  string    `json:"access_token"`
	OwnerID      int64     `json:"owner_id,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore persists tokens by profile
type TokenStore interface {
	Store(token *Token) error
	Retrieve(profile string) (*Token, error)
	List() ([]*Token, error)
	Delete(profile string) error
	Exists(profile string) bool
}

// Manager looks tokens up across several stores, first hit wins
type Manager struct {
	stores []TokenStore
}

// NewManager builds the default chain: system keyring when it works, the
// encrypted file under the config directory, then the environment
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, fileStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over an explicit chain
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the token in the first store that accepts it
func (m *Manager) Store(token *Token) error {
	if token == nil || token.AccessToken == "" {
		return ErrInvalidToken
	}
	if token.Profile == "" {
		token.Profile = DefaultProfile
	}
	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve returns the token for profile from the first store holding it
func (m *Manager) Retrieve(profile string) (*Token, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if token, err := store.Retrieve(profile); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w: profile %q", ErrTokenNotFound, profile)
}

// AccessToken is Retrieve reduced to the raw token string
func (m *Manager) AccessToken(profile string) (string, error) {
	token, err := m.Retrieve(profile)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// List merges the tokens of every store, keeping the newest per profile
func (m *Manager) List() ([]*Token, error) {
	byProfile := make(map[string]*Token)
	for _, store := range m.stores {
		tokens, err := store.List()
		if err != nil {
			continue
		}
		for _, token := range tokens {
			if existing, ok := byProfile[token.Profile]; !ok || token.LastModified.After(existing.LastModified) {
				byProfile[token.Profile] = token
			}
		}
	}

	result := make([]*Token, 0, len(byProfile))
	for _, token := range byProfile {
		result = append(result, token)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })
	return result, nil
}

// Delete removes the profile from every store that has it
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: profile %q", ErrTokenNotFound, profile)
	}
	return nil
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "catalogsync")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "catalogsync")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "catalogsync")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "catalogsync")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Masked returns a copy safe to print
func (t *Token) Masked() *Token {
	if t == nil {
		return nil
	}
	masked := *t
	masked.AccessToken = maskString(t.AccessToken)
	return &masked
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrTokenNotFound    = errors.New("access token not found")
	ErrInvalidToken     = errors.New("invalid access token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)
