package auth

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/gitdata/pkg/logging"
)

// Manager looks tokens up across several stores, first match wins.
type Manager struct {
	stores []Store
	logger zerolog.Logger
}

// Options selects the stores built by NewDefaultManager.
type Options struct {
	// Dir holds the INI token file.
	Dir string

	// UseKeyring adds the system keychain after the INI file.
	UseKeyring bool
}

// NewManager creates a manager over the given stores, queried in order.
func NewManager(stores ...Store) *Manager {
	return &Manager{
		stores: stores,
		logger: logging.NewLogger("auth"),
	}
}

// NewDefaultManager builds the INI store, optionally the keychain, and the
// environment store as the last fallback.
func NewDefaultManager(opts Options) *Manager {
	m := NewManager(NewINIStore(filepath.Join(opts.Dir, DefaultINIFile)))

	if opts.UseKeyring {
		if ks, err := NewKeyringStore(); err == nil {
			m.stores = append(m.stores, ks)
		} else {
			m.logger.Debug().Err(err).Msg("Keychain store unavailable")
		}
	}

	m.stores = append(m.stores, NewEnvStore())
	return m
}

// Stores returns the configured stores.
func (m *Manager) Stores() []Store {
	return m.stores
}

// Token returns the token for username from the first store that has one,
// along with that store's name.
func (m *Manager) Token(username string) (string, string, error) {
	if err := validUsername(username); err != nil {
		return "", "", err
	}
	for _, store := range m.stores {
		token, err := store.Token(username)
		if err == nil {
			return token, store.Name(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn().Err(err).Str("store", store.Name()).Msg("Credential lookup failed")
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnknownUser, username)
}

// SetToken stores token for username in the first writable store.
func (m *Manager) SetToken(username, token string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	var errs []error
	for _, store := range m.stores {
		err := store.SetToken(username, token)
		if err == nil {
			m.logger.Info().Str("user", username).Str("store", store.Name()).Msg("Token stored")
			return nil
		}
		if !errors.Is(err, ErrReadOnly) {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	if len(errs) == 0 {
		return ErrReadOnly
	}
	return fmt.Errorf("store token: %w", errors.Join(errs...))
}

// DeleteToken removes username from every writable store.
func (m *Manager) DeleteToken(username string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	deleted := false
	var errs []error
	for _, store := range m.stores {
		err := store.DeleteToken(username)
		switch {
		case err == nil:
			deleted = true
			m.logger.Info().Str("user", username).Str("store", store.Name()).Msg("Token deleted")
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrReadOnly):
		default:
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete token: %w", errors.Join(errs...))
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	return nil
}

// DefaultUser returns the first default user named by a store.
func (m *Manager) DefaultUser() string {
	for _, store := range m.stores {
		if ds, ok := store.(DefaultUserStore); ok {
			if user := ds.DefaultUser(); user != "" {
				return user
			}
		}
	}
	return ""
}

// Resolve returns the credentials for username. An empty username falls
// back to the default user, or anonymous access when there is none.
func (m *Manager) Resolve(username string) (Credentials, error) {
	if username == "" {
		username = m.DefaultUser()
		if username == "" {
			return Credentials{}, nil
		}
	}

	token, source, err := m.Token(username)
	if err != nil {
		return Credentials{}, err
	}
	m.logger.Debug().Str("user", username).Str("store", source).Msg("Credentials resolved")
	return Credentials{Username: username, Token: token}, nil
}

// Status describes the credentials in use for display.
type Status struct {
	Username string
	Token    string
	Source   string
}

// String renders "username: ab...yz".
func (s Status) String() string {
	if s.Username == "" {
		return "anonymous: *none*"
	}
	return fmt.Sprintf("%s: %s", s.Username, s.Token)
}

// Status reports the user and abbreviated token Resolve would use.
func (m *Manager) Status(username string) Status {
	if username == "" {
		username = m.DefaultUser()
	}
	if username == "" {
		return Status{Token: Abbreviate("")}
	}
	token, source, err := m.Token(username)
	if err != nil {
		return Status{Username: username, Token: Abbreviate("")}
	}
	return Status{Username: username, Token: Abbreviate(token), Source: source}
}
