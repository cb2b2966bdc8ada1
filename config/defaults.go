package config

import (
	"fmt"
	"time"
)

const (
	DefaultPort      = 22
	DefaultTimeout   = 30 * time.Second
	DefaultElevation = "sudo"
	DefaultLogDir    = "./netbed-logs"
)

// ApplyDefaults fills in unset optional fields after validation.
func ApplyDefaults(cfg *TestbedConfig) {
	if cfg.Spec.LogDir == "" {
		cfg.Spec.LogDir = DefaultLogDir
	}

	for i := range cfg.Spec.Hosts {
		host := &cfg.Spec.Hosts[i]
		if host.Port == 0 {
			host.Port = DefaultPort
		}
		if host.Timeout == 0 {
			host.Timeout = DefaultTimeout
		}
		if host.Elevation == "" {
			host.Elevation = DefaultElevation
		}
	}

	for i := range cfg.Spec.Steps {
		step := &cfg.Spec.Steps[i]
		if len(step.Nodes) == 0 {
			step.Nodes = []string{"all"}
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step-%d", i+1)
		}
	}
}
