package auth

import (
	"os"
	"strconv"
	"time"
)

const (
	envAccessToken = "CATALOGSYNC_ACCESS_TOKEN"
	envOwnerID     = "CATALOGSYNC_OWNER_ID"
)

// EnvironmentStore exposes CATALOGSYNC_ACCESS_TOKEN as a read-only token
// matching any profile
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(*Token) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(profile string) (*Token, error) {
	accessToken := os.Getenv(envAccessToken)
	if accessToken == "" {
		return nil, ErrTokenNotFound
	}
	if profile == "" {
		profile = DefaultProfile
	}

	token := &Token{
		Profile:      profile,
		AccessToken:  accessToken,
		LastModified: time.Now(),
	}
	if owner, err := strconv.ParseInt(os.Getenv(envOwnerID), 10, 64); err == nil {
		token.OwnerID = owner
	}
	return token, nil
}

func (e *EnvironmentStore) List() ([]*Token, error) {
	token, err := e.Retrieve("")
	if err != nil {
		return []*Token{}, nil
	}
	return []*Token{token}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	return os.Getenv(envAccessToken) != ""
}
