// Package config stores CLI settings and credentials in a TOML file
// within the sfq config directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/fondat/salesforce-go/salesforce/oauth"
)

// DefaultDirName is the config directory under the user's home.
const DefaultDirName = ".sfq"

// fileName is the config file within the config directory.
const fileName = "config.toml"

// Config is the persisted CLI configuration. Environment variables
// take precedence over file values; see Resolved.
type Config struct {
	Endpoint     string `toml:"endpoint,omitempty"`
	ClientID     string `toml:"client_id,omitempty"`
	ClientSecret string `toml:"client_secret,omitempty"`
	Username     string `toml:"username,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	APIVersion   string `toml:"api_version,omitempty"`
}

// Store is a file-based TOML config store.
type Store struct {
	mu       sync.RWMutex
	filePath string
	config   Config
}

// NewStore creates a config store rooted at configDir. If configDir is
// empty, defaults to ~/.sfq.
func NewStore(configDir string) (*Store, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, DefaultDirName)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &Store{filePath: filepath.Join(configDir, fileName)}
	if err := s.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.filePath
}

// Load reads the config file from disk.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}
	s.config = config
	return nil
}

// Save writes the config file to disk. Credentials are involved, so
// the file is private to the user.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := toml.Marshal(s.config)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(s.filePath, data, 0600)
}

// Get returns a copy of the stored config.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Set replaces the stored config. Call Save to persist it.
func (s *Store) Set(config Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

// Update applies fn to the stored config under the write lock.
func (s *Store) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config)
}

// Resolved returns the config with FONDAT_SALESFORCE_* environment
// variables overriding file values.
func (s *Store) Resolved() Config {
	config := s.Get()
	override(&config.Endpoint, oauth.EnvEndpoint)
	override(&config.ClientID, oauth.EnvClientID)
	override(&config.ClientSecret, oauth.EnvClientSecret)
	override(&config.Username, oauth.EnvUsername)
	override(&config.RefreshToken, oauth.EnvRefreshToken)
	return config
}

func override(dst *string, env string) {
	if value := os.Getenv(env); value != "" {
		*dst = value
	}
}
