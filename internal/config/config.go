package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// DefaultDeviceURL is the tablet's address over USB networking.
const DefaultDeviceURL = "http://10.11.99.1"

var ErrNoHomeDir = errors.New("cannot determine home directory")

type Config struct {
	DeviceURL  string        `yaml:"device_url"`
	BackupRoot string        `yaml:"backup_root"`
	Timeout    time.Duration `yaml:"timeout"` // 0 keeps the HTTP client default
	Time       string        `yaml:"time"`    // scheduled run time, HH:MM
	Exclude    []string      `yaml:"exclude"`
	Retention  struct {
		KeepLast int `yaml:"keep_last"`
	} `yaml:"retention"`
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHomeDir
	}
	return home, nil
}

func DefaultConfig() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		DeviceURL:  DefaultDeviceURL,
		BackupRoot: filepath.Join(home, "tablet-backups"),
		Time:       "03:00",
		Exclude:    []string{},
	}, nil
}

func ConfigPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rmbak", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when it is missing.
func Load() (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.DeviceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("device_url %q must be an http(s) URL", c.DeviceURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.Retention.KeepLast < 0 {
		return fmt.Errorf("retention.keep_last must not be negative")
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if _, _, err := c.ScheduleTime(); err != nil {
		return err
	}
	return nil
}

// ScheduleTime parses Time into hour and minute.
func (c *Config) ScheduleTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("time %q must be HH:MM", c.Time)
	}
	return t.Hour(), t.Minute(), nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
