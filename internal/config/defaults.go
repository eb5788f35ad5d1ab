package config

// DefaultServiceWeight is used when a service definition does not set one.
const DefaultServiceWeight = 20.0

// GetDefaultConfig returns the built-in configuration: no supervised
// services, IPC on, update probe on. User and project files layer on top.
func GetDefaultConfig() ShellConfig {
	return ShellConfig{
		Shell: ShellSettings{
			Title:    "shellboot",
			LogLevel: "info",
		},
		IPC: IPCSettings{
			Host: "localhost",
		},
		Updates: UpdatesSettings{},
	}
}
