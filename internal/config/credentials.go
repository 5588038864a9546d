package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Credentials holds the transcription API key. OPENAI_API_KEY wins over the key
// file until a key is entered at runtime.
type Credentials struct {
	envKey string
	path   string

	mu      sync.RWMutex
	stored  string
	entered bool
}

// LoadCredentials reads path if it exists. A missing file is not an error.
func LoadCredentials(envKey string, path string) (*Credentials, error) {
	c := &Credentials{envKey: strings.TrimSpace(envKey), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("read api key file: %w", err)
	}
	c.stored = strings.TrimSpace(string(data))
	return c, nil
}

// APIKey returns the active key, or "" when none is configured.
func (c *Credentials) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.envKey != "" && !c.entered {
		return c.envKey
	}
	return c.stored
}

// Set stores key in the key file with owner-only permissions.
func (c *Credentials) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key cannot be empty")
	}
	if err := writeFileAtomic(c.path, []byte(key+"\n"), 0o600); err != nil {
		return err
	}
	c.mu.Lock()
	c.stored = key
	c.entered = true
	c.mu.Unlock()
	return nil
}

// FromEnvironment reports whether the active key comes from OPENAI_API_KEY.
func (c *Credentials) FromEnvironment() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.envKey != "" && !c.entered
}
