package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and structural validation of a TestbedConfig.
type Loader struct {
	filePath string
}

// NewLoader creates a configuration loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads the configuration file, unmarshals it, validates its
// structure and applies defaults.
func (l *Loader) Load() (*TestbedConfig, error) {
	if l.filePath == "" {
		return nil, fmt.Errorf("configuration file path is empty")
	}
	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", l.filePath, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("configuration file '%s' is empty", l.filePath)
	}

	var cfg TestbedConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML from '%s': %w", l.filePath, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed for '%s': %w", l.filePath, err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Validate checks structural requirements before defaulting.
func Validate(cfg *TestbedConfig) error {
	if cfg.APIVersion == "" {
		return fmt.Errorf("apiVersion is a required field")
	}
	if cfg.Kind != "Testbed" {
		return fmt.Errorf("kind must be 'Testbed', got '%s'", cfg.Kind)
	}
	if cfg.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is a required field")
	}
	if len(cfg.Spec.Hosts) == 0 {
		return fmt.Errorf("spec.hosts must list at least one host")
	}

	seen := make(map[string]bool, len(cfg.Spec.Hosts))
	for i, host := range cfg.Spec.Hosts {
		if host.Name == "" {
			return fmt.Errorf("spec.hosts[%d]: name is required", i)
		}
		if seen[host.Name] {
			return fmt.Errorf("spec.hosts[%d]: duplicate host name '%s'", i, host.Name)
		}
		seen[host.Name] = true

		if !host.Local {
			if host.Address == "" {
				return fmt.Errorf("host '%s': address is required for remote hosts", host.Name)
			}
			if host.User == "" {
				return fmt.Errorf("host '%s': user is required for remote hosts", host.Name)
			}
		}
		switch host.Elevation {
		case "", "sudo", "su":
		default:
			return fmt.Errorf("host '%s': elevation must be 'sudo' or 'su', got '%s'", host.Name, host.Elevation)
		}
	}

	for i, step := range cfg.Spec.Steps {
		if step.Command == "" {
			return fmt.Errorf("spec.steps[%d]: command is required", i)
		}
		for _, node := range step.Nodes {
			if node != "all" && !seen[node] {
				return fmt.Errorf("spec.steps[%d]: unknown node '%s'", i, node)
			}
		}
	}

	return nil
}
