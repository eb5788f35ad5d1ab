package config

// ShellConfig is the top-level configuration structure for shellboot.
type ShellConfig struct {
	Shell    ShellSettings       `yaml:"shell"`
	Services []ServiceDefinition `yaml:"services"`
	IPC      IPCSettings         `yaml:"ipc"`
	Updates  UpdatesSettings     `yaml:"updates"`
}

// ShellSettings are global knobs: what the splash shows, where state lives,
// how chatty the logs are.
type ShellSettings struct {
	Title     string `yaml:"title,omitempty"`
	StateFile string `yaml:"stateFile,omitempty"` // default: ~/.local/state/shellboot/state.yaml
	LogLevel  string `yaml:"logLevel,omitempty"`  // debug, info, warn, error
}

// ServiceDefinition describes one supervised out-of-process service and its
// place in the startup sequence.
type ServiceDefinition struct {
	Name        string            `yaml:"name"`                  // unique name, e.g. "model-service"
	DisplayName string            `yaml:"displayName,omitempty"` // splash label; defaults to Name
	Command     []string          `yaml:"command"`               // command and arguments
	Env         map[string]string `yaml:"env,omitempty"`
	Port        int               `yaml:"port,omitempty"`   // preferred listen port; 0 means any free port
	Weight      float64           `yaml:"weight,omitempty"` // progress share; defaults to 20
	Optional    bool              `yaml:"optional,omitempty"`
	Enabled     bool              `yaml:"enabledByDefault"`
}

// IPCSettings configure the local request-handler server. Enabled is a
// pointer so a config file that never mentions ipc keeps the default (on).
type IPCSettings struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"` // default: localhost
	Port    int    `yaml:"port,omitempty"` // preferred port; 0 means any free port
}

// IsEnabled resolves the tri-state flag; unset means enabled.
func (s IPCSettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// UpdatesSettings configure the release probe.
type UpdatesSettings struct {
	CheckOnStartup *bool  `yaml:"checkOnStartup,omitempty"`
	RepoSlug       string `yaml:"repoSlug,omitempty"`
}

// ShouldCheck resolves the tri-state flag; unset means check.
func (s UpdatesSettings) ShouldCheck() bool {
	return s.CheckOnStartup == nil || *s.CheckOnStartup
}
