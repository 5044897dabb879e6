package storage

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "guideprogress"

// KeyringStore keeps values in the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed store after checking the
// keychain accepts writes
func NewKeyringStore() (*KeyringStore, error) {
	const probe = "availability_probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: keyring: %v", ErrUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)

	return &KeyringStore{service: keyringService}, nil
}

func (k *KeyringStore) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}

	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return value, true, nil
}

func (k *KeyringStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Close() error { return nil }
