// Package auth stores Lightspeed personal access tokens, keyed by retailer
// domain. The system keychain is preferred, with an encrypted file fallback
// and a read-only environment variable store for CI and cron use.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credential holds the access token for one retailer domain
type Credential struct {
	Domain       string    `json:"domain"`
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

var (
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

// CredentialStore is the interface for storing and retrieving tokens
type CredentialStore interface {
	Store(cred *Credential) error
	Retrieve(domain string) (*Credential, error)
	Delete(domain string) error
	Exists(domain string) bool
}

// Manager tries each configured store in order
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with the available backends:
// system keychain first, encrypted file as fallback, environment last.
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves the credential in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Domain == "" || cred.Token == "" {
		return ErrInvalidCredential
	}
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else if !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrStoreUnavailable
}

// Retrieve finds the credential for a domain in any store
func (m *Manager) Retrieve(domain string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(domain); err == nil {
			return cred, nil
		}
	}
	return nil, ErrCredentialNotFound
}

// Delete removes the credential from every store that has it
func (m *Manager) Delete(domain string) error {
	found := false
	for _, store := range m.stores {
		if err := store.Delete(domain); err == nil {
			found = true
		}
	}
	if !found {
		return ErrCredentialNotFound
	}
	return nil
}

// Exists checks whether any store has a credential for the domain
func (m *Manager) Exists(domain string) bool {
	for _, store := range m.stores {
		if store.Exists(domain) {
			return true
		}
	}
	return false
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "lsexport")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
