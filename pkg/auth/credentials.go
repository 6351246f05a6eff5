// Package auth looks up static GitHub credentials: a username plus a
// personal access token (PAT). Tokens live in an INI file, the system
// keychain or the GitHubUser/GitHubPAT environment variables.
package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by a store that holds no token for a user.
	ErrNotFound = errors.New("token not found")

	// ErrReadOnly is returned when writing to a store that cannot be written.
	ErrReadOnly = errors.New("credential store is read-only")

	// ErrUnknownUser is returned when no store has a token for a named user.
	ErrUnknownUser = errors.New("unknown GitHub user")

	// ErrInvalidUsername is returned for an empty or malformed username.
	ErrInvalidUsername = errors.New("invalid username")
)

// Credentials identify the caller for HTTP basic auth.
type Credentials struct {
	Username string
	Token    string
}

// Anonymous returns true if the credentials carry no token.
func (c Credentials) Anonymous() bool {
	return c.Username == "" || c.Token == ""
}

// String renders the credentials with the token abbreviated.
func (c Credentials) String() string {
	if c.Username == "" {
		return "anonymous"
	}
	return fmt.Sprintf("%s (token %s)", c.Username, Abbreviate(c.Token))
}

// Abbreviate shows the first and last two characters of a token.
func Abbreviate(token string) string {
	switch {
	case token == "":
		return "*none*"
	case len(token) <= 4:
		return strings.Repeat("*", len(token))
	default:
		return token[:2] + "..." + token[len(token)-2:]
	}
}

// Store is a source of tokens keyed by GitHub username.
type Store interface {
	// Name identifies the store in logs and status output.
	Name() string

	// Token returns the token stored for username or ErrNotFound.
	Token(username string) (string, error)

	// SetToken stores token for username.
	SetToken(username, token string) error

	// DeleteToken removes username from the store or returns ErrNotFound.
	DeleteToken(username string) error
}

// DefaultUserStore is implemented by stores that can name a default user.
type DefaultUserStore interface {
	DefaultUser() string
}

func validUsername(username string) error {
	if strings.TrimSpace(username) == "" || strings.ContainsAny(username, "[]\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	return nil
}
