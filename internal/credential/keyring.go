// Package credential stores per-provider integration identifiers in the
// system keyring so they survive restarts without living in plain config.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "killthenoise"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/killthenoise/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("killthenoise-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// integrationKey builds the keyring key for a provider's default
// integration ID.
func integrationKey(provider string) string {
	return provider + "-integration-id"
}

// GetIntegrationID retrieves the stored default integration ID for a
// provider. Returns an empty string without error when none is stored.
func GetIntegrationID(provider string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(integrationKey(provider))
	if err != nil {
		if err == keyring.ErrKeyNotFound {
			return "", nil
		}
		return "", fmt.Errorf("getting integration id for %q: %w", provider, err)
	}

	return string(item.Data), nil
}

// SetIntegrationID stores the default integration ID for a provider.
func SetIntegrationID(provider, id string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  integrationKey(provider),
		Data: []byte(id),
	})
	if err != nil {
		return fmt.Errorf("setting integration id for %q: %w", provider, err)
	}

	return nil
}

// DeleteIntegrationID removes the stored integration ID for a provider.
func DeleteIntegrationID(provider string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(integrationKey(provider))
	if err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("deleting integration id for %q: %w", provider, err)
	}

	return nil
}
