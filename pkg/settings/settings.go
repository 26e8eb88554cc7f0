// Package settings manages persistent user settings for the rogue-dhcp CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
)

// Settings holds persistent user preferences
type Settings struct {
	// ConfigPath is used when -c is not given
	ConfigPath string `json:"config_path,omitempty"`

	// TrustedFile is checked when no file argument is given
	TrustedFile string `json:"trusted_file,omitempty"`

	// AuditPath overrides the audit log location for history queries
	AuditPath string `json:"audit_path,omitempty"`
}

// Setting keys accepted by Get and Set
const (
	KeyConfig      = "config"
	KeyTrustedFile = "trusted-file"
	KeyAuditPath   = "audit-path"
)

func (s *Settings) fields() map[string]*string {
	return map[string]*string{
		KeyConfig:      &s.ConfigPath,
		KeyTrustedFile: &s.TrustedFile,
		KeyAuditPath:   &s.AuditPath,
	}
}

// Keys lists the setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, 3)
	for k := range (&Settings{}).fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rogue-dhcp_settings.json"
	}
	return filepath.Join(home, ".rogue-dhcp", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// empty settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Get returns the value for key.
func (s *Settings) Get(key string) (string, error) {
	p, ok := s.fields()[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	return *p, nil
}

// Set assigns value to key. An empty value clears it.
func (s *Settings) Set(key, value string) error {
	p, ok := s.fields()[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	*p = value
	return nil
}

// GetConfigPath returns the config path (with fallback)
func (s *Settings) GetConfigPath() string {
	if s.ConfigPath != "" {
		return s.ConfigPath
	}
	return config.DefaultPath
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
