package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "lsexport"

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a keyring-based store, probing for availability
func NewKeyringStore() (*KeyringStore, error) {
	const testKey = "availability_probe"
	if err := keyring.Set(keyringService, testKey, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

// Store saves the credential to the system keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Domain == "" {
		return ErrInvalidCredential
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := keyring.Set(keyringService, cred.Domain, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets the credential for a domain from the keychain
func (k *KeyringStore) Retrieve(domain string) (*Credential, error) {
	if domain == "" {
		return nil, ErrInvalidCredential
	}
	data, err := keyring.Get(keyringService, domain)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// Delete removes the credential from the keychain
func (k *KeyringStore) Delete(domain string) error {
	if domain == "" {
		return ErrInvalidCredential
	}
	if err := keyring.Delete(keyringService, domain); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks whether the keychain has a credential for the domain
func (k *KeyringStore) Exists(domain string) bool {
	if domain == "" {
		return false
	}
	_, err := keyring.Get(keyringService, domain)
	return err == nil
}
