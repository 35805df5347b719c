package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.Profiles)
	require.NotNil(t, cfg.Defaults)
	assert.Equal(t, "http://localhost:8095", cfg.Defaults.ServiceURL)
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.CurrentProfile)
	assert.Equal(t, "http://localhost:8095", cfg.Defaults.ServiceURL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `current_profile: production
profiles:
  production:
    service_url: https://rollup.example.com
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.CurrentProfile)
	require.Contains(t, cfg.Profiles, "production")
	assert.Equal(t, "https://rollup.example.com", cfg.Profiles["production"].ServiceURL)
	assert.Equal(t, "http://localhost:8095", cfg.Defaults.ServiceURL)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("ROLLUP_SERVICE_URL", "http://env-rollup:9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-rollup:9000", cfg.Defaults.ServiceURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("current_profile:\n  - not\n  - a string\n"), 0600))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".rollup", "config.yaml")

	cfg := Default()
	cfg.path = configPath
	cfg.CurrentProfile = "test-profile"
	require.NoError(t, cfg.Save())

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "test-profile", loaded.CurrentProfile)
}

func TestSaveProfile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{CurrentProfile: "default", path: configPath}
	require.NoError(t, cfg.SaveProfile("dev", "http://dev:8095"))
	require.NoError(t, cfg.SaveProfile("prod", "https://prod.example.com"))

	assert.Contains(t, cfg.Profiles, "dev")
	assert.Equal(t, "prod", cfg.CurrentProfile)

	loaded, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com", loaded.Profiles["prod"].ServiceURL)
}

func TestRemoveProfile(t *testing.T) {
	cfg := Default()
	cfg.path = filepath.Join(t.TempDir(), "config.yaml")
	cfg.Profiles["dev"] = &Profile{ServiceURL: "http://dev:8095"}
	cfg.Profiles["prod"] = &Profile{ServiceURL: "http://prod:8095"}
	cfg.CurrentProfile = "dev"

	require.NoError(t, cfg.RemoveProfile("prod"))
	assert.Equal(t, "dev", cfg.CurrentProfile)

	require.NoError(t, cfg.RemoveProfile("dev"))
	assert.Equal(t, "", cfg.CurrentProfile)

	assert.Error(t, cfg.RemoveProfile("nonexistent"))
}

func TestServiceURL(t *testing.T) {
	cfg := Default()
	cfg.Profiles["custom"] = &Profile{ServiceURL: "https://custom.example.com"}
	cfg.Profiles["blank"] = &Profile{}

	tests := []struct {
		name    string
		profile string
		want    string
	}{
		{"from profile", "custom", "https://custom.example.com"},
		{"profile without url", "blank", "http://localhost:8095"},
		{"unknown profile", "nonexistent", "http://localhost:8095"},
		{"current profile missing", "", "http://localhost:8095"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.ServiceURL(tt.profile))
		})
	}
}
