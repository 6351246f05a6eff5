package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/ini.v1"
)

// DefaultINIFile is the file name used for the INI token store.
const DefaultINIFile = "github_users.ini"

// tokenKey is the key holding the token inside a user's section.
const tokenKey = "PAT"

// INIStore keeps tokens in an INI file with one section per user:
//
//	[octocat]
//	PAT = ghp_xxxxxxxx
type INIStore struct {
	path string
}

// NewINIStore creates a store backed by the file at path. The file is
// created on the first write.
func NewINIStore(path string) *INIStore {
	return &INIStore{path: path}
}

// Name implements Store.
func (s *INIStore) Name() string {
	return "ini"
}

// Path returns the backing file.
func (s *INIStore) Path() string {
	return s.path
}

func (s *INIStore) load() (*ini.File, error) {
	f, err := ini.LooseLoad(s.path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return f, nil
}

func (s *INIStore) save(f *ini.File) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := f.SaveTo(s.path); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}
	return nil
}

// Token implements Store.
func (s *INIStore) Token(username string) (string, error) {
	if err := validUsername(username); err != nil {
		return "", err
	}
	f, err := s.load()
	if err != nil {
		return "", err
	}
	section, err := f.GetSection(username)
	if err != nil || !section.HasKey(tokenKey) {
		return "", ErrNotFound
	}
	token := section.Key(tokenKey).String()
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// SetToken implements Store.
func (s *INIStore) SetToken(username, token string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	f, err := s.load()
	if err != nil {
		return err
	}
	section, err := f.GetSection(username)
	if err != nil {
		if section, err = f.NewSection(username); err != nil {
			return fmt.Errorf("add section %q: %w", username, err)
		}
	}
	section.Key(tokenKey).SetValue(token)
	return s.save(f)
}

// DeleteToken implements Store.
func (s *INIStore) DeleteToken(username string) error {
	if err := validUsername(username); err != nil {
		return err
	}
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, err := f.GetSection(username); err != nil {
		return ErrNotFound
	}
	f.DeleteSection(username)
	return s.save(f)
}

// Users lists the usernames stored in the file, sorted.
func (s *INIStore) Users() ([]string, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	var users []string
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		users = append(users, name)
	}
	sort.Strings(users)
	return users, nil
}
