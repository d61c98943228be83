package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultAccountName is the account name used when none is given.
const DefaultAccountName = "default"

// Account is one saved credential record.
type Account struct {
	Channel  string `json:"channel"`
	Instance string `json:"instance,omitempty"`
	APIKey   string `json:"api_key"`
}

// AccountStore persists named accounts in a JSON file created with
// 0600 permissions. Safe for concurrent use within one process; the
// file is rewritten whole on every change.
type AccountStore struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex
}

// NewAccountStore opens a store at path, or at DefaultAccountPath when
// path is empty.
func NewAccountStore(path string, log zerolog.Logger) (*AccountStore, error) {
	if path == "" {
		var err error
		path, err = DefaultAccountPath()
		if err != nil {
			return nil, err
		}
	}
	return &AccountStore{
		path: path,
		log:  log.With().Str("component", "accounts").Logger(),
	}, nil
}

// DefaultAccountPath returns ~/.qrand/accounts.json.
func DefaultAccountPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".qrand", "accounts.json"), nil
}

// Path returns the file the store reads and writes.
func (s *AccountStore) Path() string { return s.path }

// Save writes the account under name, replacing any existing record.
// An empty name saves under DefaultAccountName.
func (s *AccountStore) Save(name string, a Account) error {
	if name == "" {
		name = DefaultAccountName
	}
	if a.APIKey == "" {
		return fmt.Errorf("credentials: account %q has no api key", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.read()
	if err != nil {
		return err
	}
	accounts[name] = a
	return s.write(accounts)
}

// Load returns the account saved under name. An empty name loads
// DefaultAccountName.
func (s *AccountStore) Load(name string) (Account, error) {
	if name == "" {
		name = DefaultAccountName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.read()
	if err != nil {
		return Account{}, err
	}
	a, ok := accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	return a, nil
}

// Delete removes the account saved under name.
func (s *AccountStore) Delete(name string) error {
	if name == "" {
		name = DefaultAccountName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := accounts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrAccountNotFound, name)
	}
	delete(accounts, name)
	return s.write(accounts)
}

// List returns the saved account names in sorted order.
func (s *AccountStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(accounts))
	for name := range accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *AccountStore) read() (map[string]Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}

	accounts := map[string]Account{}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}
	return accounts, nil
}

func (s *AccountStore) write(accounts map[string]Account) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create account dir: %w", err)
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}

	s.log.Debug().
		Str("path", s.path).
		Int("accounts", len(accounts)).
		Msg("wrote account file")
	return nil
}
