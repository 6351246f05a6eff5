package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "gitdata"

// KeyringStore keeps tokens in the system keychain.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keychain store after checking the keychain
// can be written.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{service: keyringService}, nil
}

// Name implements Store.
func (k *KeyringStore) Name() string {
	return "keyring"
}

// Token implements Store.
func (k *KeyringStore) Token(username string) (string, error) {
	if err := validUsername(username); err != nil {
		return "", err
	}
	token, err := keyring.Get(k.service, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return token, nil
}

// SetToken implements Store.
func (k *KeyringStore) SetToken(username, token string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	if err := keyring.Set(k.service, username, token); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// DeleteToken implements Store.
func (k *KeyringStore) DeleteToken(username string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	if err := keyring.Delete(k.service, username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
