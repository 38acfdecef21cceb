package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringServicePrefix is the prefix for all todosync keyring entries
	KeyringServicePrefix = "todosync"

	// tokenAccount is the keyring user under which a remote's token is kept
	tokenAccount = "token"
)

// ErrNoToken is returned when the keyring has no token for a remote
var ErrNoToken = errors.New("no token stored")

// getServiceName returns the keyring service name for a remote
func getServiceName(remoteName string) string {
	return fmt.Sprintf("%s-%s", KeyringServicePrefix, remoteName)
}

// Set stores a token in the OS keyring
func Set(remoteName, token string) error {
	if remoteName == "" {
		return fmt.Errorf("remote name cannot be empty")
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := keyring.Set(getServiceName(remoteName), tokenAccount, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Get retrieves a token from the OS keyring
func Get(remoteName string) (string, error) {
	if remoteName == "" {
		return "", fmt.Errorf("remote name cannot be empty")
	}

	token, err := keyring.Get(getServiceName(remoteName), tokenAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("remote %q: %w", remoteName, ErrNoToken)
		}
		return "", fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}
	return token, nil
}

// Delete removes a token from the OS keyring
func Delete(remoteName string) error {
	if remoteName == "" {
		return fmt.Errorf("remote name cannot be empty")
	}

	if err := keyring.Delete(getServiceName(remoteName), tokenAccount); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("remote %q: %w", remoteName, ErrNoToken)
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
func IsAvailable() bool {
	// A working keyring answers ErrNotFound for an entry that does not exist
	_, err := keyring.Get(KeyringServicePrefix+"-keyring-test", "test")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
