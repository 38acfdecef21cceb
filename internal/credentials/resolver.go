package credentials

import (
	"errors"
	"fmt"
	"strings"

	"todosync/internal/utils"
)

// Source indicates where a token was found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// Credentials is a resolved remote token
type Credentials struct {
	Remote string
	Token  string
	Source Source
}

// Masked returns the token with all but its last four characters hidden
func (c *Credentials) Masked() string {
	return Mask(c.Token)
}

// Resolver looks a token up in priority order: keyring, environment, config
type Resolver struct {
	// UseKeyring disables the keyring lookup when false (headless hosts)
	UseKeyring bool
	logger     *utils.Logger
}

// NewResolver creates a resolver that consults the keyring when available
func NewResolver(logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Resolver{UseKeyring: true, logger: logger}
}

// Resolve returns the token for remoteName. configToken is the plain-text
// token from the config file, used last.
func (r *Resolver) Resolve(remoteName, configToken string) (*Credentials, error) {
	if remoteName == "" {
		return nil, fmt.Errorf("remote name is required for credential resolution")
	}

	if r.UseKeyring && IsAvailable() {
		token, err := Get(remoteName)
		switch {
		case err == nil:
			return &Credentials{Remote: remoteName, Token: token, Source: SourceKeyring}, nil
		case !errors.Is(err, ErrNoToken):
			r.logger.Warn("Keyring lookup failed for %s: %v", remoteName, err)
		}
	}

	if token := GetToken(remoteName); token != "" {
		return &Credentials{Remote: remoteName, Token: token, Source: SourceEnv}, nil
	}

	if token := strings.TrimSpace(configToken); token != "" {
		return &Credentials{Remote: remoteName, Token: token, Source: SourceConfig}, nil
	}

	return nil, utils.ErrTokenNotFound(remoteName)
}

// Mask hides a secret for display
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
