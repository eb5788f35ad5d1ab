package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/shellboot"
	projectConfigDir = ".shellboot"
	configFileName   = "config.yaml"
)

// LoadConfig layers default, user, and project settings, in that order.
// Missing files are fine; unreadable or invalid ones are not.
func LoadConfig() (ShellConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return ShellConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return ShellConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	applyDefaults(&config)
	if err := validate(config); err != nil {
		return ShellConfig{}, err
	}
	return config, nil
}

// LoadConfigFromDir bypasses the user/project layering and reads
// <dir>/config.yaml on top of the defaults. Used by the --config flag.
func LoadConfigFromDir(dir string) (ShellConfig, error) {
	config := GetDefaultConfig()

	path := filepath.Join(dir, configFileName)
	fileConfig, err := loadConfigFromFile(path)
	if err != nil {
		return ShellConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config = mergeConfigs(config, fileConfig)

	applyDefaults(&config)
	if err := validate(config); err != nil {
		return ShellConfig{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func loadConfigFromFile(filePath string) (ShellConfig, error) {
	var config ShellConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return ShellConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return ShellConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Scalars override
// when set; services merge by name, overlay winning.
func mergeConfigs(base, overlay ShellConfig) ShellConfig {
	merged := base

	if overlay.Shell.Title != "" {
		merged.Shell.Title = overlay.Shell.Title
	}
	if overlay.Shell.StateFile != "" {
		merged.Shell.StateFile = overlay.Shell.StateFile
	}
	if overlay.Shell.LogLevel != "" {
		merged.Shell.LogLevel = overlay.Shell.LogLevel
	}

	if len(overlay.Services) > 0 {
		index := make(map[string]int, len(merged.Services))
		for i, svc := range merged.Services {
			index[svc.Name] = i
		}
		for _, svc := range overlay.Services {
			if i, ok := index[svc.Name]; ok {
				merged.Services[i] = svc
			} else {
				merged.Services = append(merged.Services, svc)
			}
		}
	}

	if overlay.IPC.Enabled != nil {
		merged.IPC.Enabled = overlay.IPC.Enabled
	}
	if overlay.IPC.Host != "" {
		merged.IPC.Host = overlay.IPC.Host
	}
	if overlay.IPC.Port != 0 {
		merged.IPC.Port = overlay.IPC.Port
	}

	if overlay.Updates.CheckOnStartup != nil {
		merged.Updates.CheckOnStartup = overlay.Updates.CheckOnStartup
	}
	if overlay.Updates.RepoSlug != "" {
		merged.Updates.RepoSlug = overlay.Updates.RepoSlug
	}

	return merged
}

func applyDefaults(config *ShellConfig) {
	for i := range config.Services {
		if config.Services[i].DisplayName == "" {
			config.Services[i].DisplayName = config.Services[i].Name
		}
		if config.Services[i].Weight == 0 {
			config.Services[i].Weight = DefaultServiceWeight
		}
	}
	if config.IPC.Host == "" {
		config.IPC.Host = "localhost"
	}
}

func validate(config ShellConfig) error {
	seen := make(map[string]bool, len(config.Services))
	for _, svc := range config.Services {
		if svc.Name == "" {
			return fmt.Errorf("service with empty name in config")
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name %q in config", svc.Name)
		}
		seen[svc.Name] = true
		if svc.Enabled && len(svc.Command) == 0 {
			return fmt.Errorf("service %q is enabled but has no command", svc.Name)
		}
		if svc.Weight < 0 {
			return fmt.Errorf("service %q has negative weight %v", svc.Name, svc.Weight)
		}
	}
	return nil
}
