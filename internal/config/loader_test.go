package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointHomeAndWd redirects the mockable path lookups at two temp dirs and
// restores them after the test.
func pointHomeAndWd(t *testing.T) (home, wd string) {
	t.Helper()
	home = t.TempDir()
	wd = t.TempDir()

	origHome, origWd := osUserHomeDir, osGetwd
	osUserHomeDir = func() (string, error) { return home, nil }
	osGetwd = func() (string, error) { return wd, nil }
	t.Cleanup(func() {
		osUserHomeDir = origHome
		osGetwd = origWd
	})
	return home, wd
}

func writeUserConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, userConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
}

func writeProjectConfig(t *testing.T, wd, content string) {
	t.Helper()
	dir := filepath.Join(wd, projectConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
}

func TestLoadConfig_DefaultsWhenNoFiles(t *testing.T) {
	pointHomeAndWd(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "shellboot", cfg.Shell.Title)
	assert.Equal(t, "info", cfg.Shell.LogLevel)
	assert.True(t, cfg.IPC.IsEnabled())
	assert.Equal(t, "localhost", cfg.IPC.Host)
	assert.True(t, cfg.Updates.ShouldCheck())
	assert.Empty(t, cfg.Services)
}

func TestLoadConfig_UserLayerOverridesDefaults(t *testing.T) {
	home, _ := pointHomeAndWd(t)
	writeUserConfig(t, home, `
shell:
  title: hive
  logLevel: debug
services:
  - name: model-service
    command: ["./model-service"]
    port: 7101
    enabledByDefault: true
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "hive", cfg.Shell.Title)
	assert.Equal(t, "debug", cfg.Shell.LogLevel)
	require.Len(t, cfg.Services, 1)
	svc := cfg.Services[0]
	assert.Equal(t, "model-service", svc.Name)
	assert.Equal(t, "model-service", svc.DisplayName, "display name defaults to name")
	assert.Equal(t, DefaultServiceWeight, svc.Weight, "weight defaults when unset")
	assert.Equal(t, 7101, svc.Port)
}

func TestLoadConfig_ProjectLayerWinsOverUser(t *testing.T) {
	home, wd := pointHomeAndWd(t)
	writeUserConfig(t, home, `
shell:
  title: from-user
services:
  - name: model-service
    command: ["./model-service"]
    weight: 30
    enabledByDefault: true
`)
	writeProjectConfig(t, wd, `
shell:
  title: from-project
services:
  - name: model-service
    displayName: Model (local build)
    command: ["./bin/model-service", "--dev"]
    optional: true
    enabledByDefault: true
  - name: memory-service
    command: ["./memory-service"]
    enabledByDefault: true
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-project", cfg.Shell.Title)
	require.Len(t, cfg.Services, 2)

	model := cfg.Services[0]
	assert.Equal(t, "Model (local build)", model.DisplayName)
	assert.Equal(t, []string{"./bin/model-service", "--dev"}, model.Command)
	assert.True(t, model.Optional)
	// The project definition replaces the user one wholesale.
	assert.Equal(t, DefaultServiceWeight, model.Weight)

	assert.Equal(t, "memory-service", cfg.Services[1].Name)
}

func TestLoadConfig_IPCEnabledSurvivesPartialOverlay(t *testing.T) {
	home, _ := pointHomeAndWd(t)
	writeUserConfig(t, home, `
ipc:
  port: 7200
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IPC.IsEnabled(), "overlay that only sets the port must not disable ipc")
	assert.Equal(t, 7200, cfg.IPC.Port)
}

func TestLoadConfig_IPCCanBeDisabled(t *testing.T) {
	home, _ := pointHomeAndWd(t)
	writeUserConfig(t, home, `
ipc:
  enabled: false
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IPC.IsEnabled())
}

func TestLoadConfig_InvalidYAMLFails(t *testing.T) {
	home, _ := pointHomeAndWd(t)
	writeUserConfig(t, home, "services: [unclosed")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading user config")
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "enabled service without command",
			yaml: `
services:
  - name: model-service
    enabledByDefault: true
`,
			wantErr: "has no command",
		},
		{
			name: "duplicate service names",
			yaml: `
services:
  - name: model-service
    command: ["./a"]
  - name: model-service
    command: ["./b"]
`,
			wantErr: "duplicate service name",
		},
		{
			name: "negative weight",
			yaml: `
services:
  - name: model-service
    command: ["./a"]
    weight: -5
`,
			wantErr: "negative weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, _ := pointHomeAndWd(t)
			writeUserConfig(t, home, tt.yaml)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfigFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`
shell:
  title: pinned
updates:
  checkOnStartup: false
`), 0o644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "pinned", cfg.Shell.Title)
	assert.False(t, cfg.Updates.ShouldCheck())
}

func TestLoadConfigFromDir_MissingFileFails(t *testing.T) {
	_, err := LoadConfigFromDir(t.TempDir())
	require.Error(t, err)
}
