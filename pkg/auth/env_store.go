package auth

import "os"

// Environment variables read by EnvStore.
const (
	EnvUser  = "GitHubUser"
	EnvToken = "GitHubPAT"
)

// EnvStore reads a single default user and token from the environment.
type EnvStore struct {
	getenv func(string) string
}

// NewEnvStore creates a store reading os.Getenv.
func NewEnvStore() *EnvStore {
	return &EnvStore{getenv: os.Getenv}
}

// Name implements Store.
func (e *EnvStore) Name() string {
	return "environment"
}

// DefaultUser returns the user named by GitHubUser.
func (e *EnvStore) DefaultUser() string {
	return e.getenv(EnvUser)
}

// Token implements Store. Only the user named by GitHubUser has a token.
func (e *EnvStore) Token(username string) (string, error) {
	user := e.getenv(EnvUser)
	token := e.getenv(EnvToken)
	if user == "" || token == "" || username != user {
		return "", ErrNotFound
	}
	return token, nil
}

// SetToken implements Store.
func (e *EnvStore) SetToken(string, string) error {
	return ErrReadOnly
}

// DeleteToken implements Store.
func (e *EnvStore) DeleteToken(string) error {
	return ErrReadOnly
}
