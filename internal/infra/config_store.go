package infra

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/eliteGoblin/auraflow/internal/domain"
)

// knownConfigKeys are owned by DaemonConfig; every other key is preserved verbatim.
var knownConfigKeys = []string{"video_path", "playback_speed", "volume", "autostart", "player"}

// JSONConfigStore implements domain.ConfigStore as a JSON document on disk.
type JSONConfigStore struct{}

// NewJSONConfigStore creates a JSON config store.
func NewJSONConfigStore() *JSONConfigStore {
	return &JSONConfigStore{}
}

// Load reads the config at path. A missing file is created with defaults;
// missing keys take their default values.
func (s *JSONConfigStore) Load(path string) (domain.DaemonConfig, error) {
	cfg, _, err := s.load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = domain.DefaultConfig()
		if err := s.Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("failed to create config: %w", err)
		}
		return cfg, nil
	}
	return cfg, err
}

// Save atomically replaces the config at path, keeping keys it does not own.
func (s *JSONConfigStore) Save(path string, cfg domain.DaemonConfig) error {
	_, raw, err := s.load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if raw == nil {
		raw = make(map[string]json.RawMessage)
	}
	for _, key := range knownConfigKeys {
		delete(raw, key)
	}

	owned, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var ownedMap map[string]json.RawMessage
	if err := json.Unmarshal(owned, &ownedMap); err != nil {
		return err
	}
	for k, v := range ownedMap {
		raw[k] = v
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, append(data, '\n'), 0644)
}

// Update loads the config, applies fn and saves the result.
func (s *JSONConfigStore) Update(path string, fn func(*domain.DaemonConfig)) (domain.DaemonConfig, error) {
	cfg, err := s.Load(path)
	if err != nil {
		return cfg, err
	}
	fn(&cfg)
	if err := s.Save(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Fingerprint returns the sha256 of the raw config bytes, or "" if unreadable.
func (s *JSONConfigStore) Fingerprint(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// load returns the typed config and the raw key map. A missing file
// returns an error wrapping os.ErrNotExist.
func (s *JSONConfigStore) load(path string) (domain.DaemonConfig, map[string]json.RawMessage, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, nil, &domain.ConfigurationError{Message: fmt.Sprintf("malformed config %s", path), Err: err}
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, &domain.ConfigurationError{Message: fmt.Sprintf("malformed config %s", path), Err: err}
	}
	return cfg, raw, nil
}

// Ensure JSONConfigStore implements domain.ConfigStore.
var _ domain.ConfigStore = (*JSONConfigStore)(nil)
