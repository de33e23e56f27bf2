package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore over LIGHTSPEED_DOMAIN and
// LIGHTSPEED_TOKEN, the variables the original export scripts used.
// Read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from the environment. An empty domain matches
// whatever domain the environment provides.
func (e *EnvironmentStore) Retrieve(domain string) (*Credential, error) {
	envDomain := os.Getenv("LIGHTSPEED_DOMAIN")
	token := os.Getenv("LIGHTSPEED_TOKEN")

	if token == "" || envDomain == "" {
		return nil, ErrCredentialNotFound
	}
	if domain != "" && domain != envDomain {
		return nil, ErrCredentialNotFound
	}

	return &Credential{
		Domain:       envDomain,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(domain string) error {
	return ErrStoreUnavailable
}

// Exists checks whether environment credentials are present for the domain
func (e *EnvironmentStore) Exists(domain string) bool {
	_, err := e.Retrieve(domain)
	return err == nil
}
