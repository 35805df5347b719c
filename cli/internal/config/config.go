// Package config stores CLI profiles in ~/.rollup/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultServiceURL = "http://localhost:8095"

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	Defaults       *Defaults           `yaml:"defaults,omitempty"`
	path           string
}

// Profile points the CLI at one wizard service.
type Profile struct {
	ServiceURL string `yaml:"service_url"`
}

// Defaults apply when the selected profile leaves a value empty.
type Defaults struct {
	ServiceURL string `yaml:"service_url"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
		Defaults:       &Defaults{ServiceURL: defaultServiceURL},
	}
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rollup", "config.yaml"), nil
}

// Load reads cfgFile, or ~/.rollup/config.yaml when empty. A missing file
// yields the defaults. ROLLUP_SERVICE_URL overrides the default service URL.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgFile, err)
		}
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*Profile)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = &Defaults{}
	}
	if cfg.Defaults.ServiceURL == "" {
		cfg.Defaults.ServiceURL = defaultServiceURL
	}
	if v := os.Getenv("ROLLUP_SERVICE_URL"); v != "" {
		cfg.Defaults.ServiceURL = v
	}
	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// SaveProfile stores a profile, makes it current and writes the file.
func (c *Config) SaveProfile(name, serviceURL string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	c.Profiles[name] = &Profile{ServiceURL: serviceURL}
	c.CurrentProfile = name
	return c.Save()
}

func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}
	return profile, nil
}

func (c *Config) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	delete(c.Profiles, name)
	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}
	return c.Save()
}

// ServiceURL resolves the wizard service URL for profile, falling back to
// the defaults.
func (c *Config) ServiceURL(profile string) string {
	if p, err := c.GetProfile(profile); err == nil && p.ServiceURL != "" {
		return p.ServiceURL
	}
	if c.Defaults != nil && c.Defaults.ServiceURL != "" {
		return c.Defaults.ServiceURL
	}
	return defaultServiceURL
}
