package config

import "time"

// TestbedConfig is the top-level configuration structure.
type TestbedConfig struct {
	APIVersion string       `yaml:"apiVersion"`
	Kind       string       `yaml:"kind"`
	Metadata   MetadataSpec `yaml:"metadata"`
	Spec       TestbedSpec  `yaml:"spec"`
}

// MetadataSpec names the testbed; the name becomes part of the per-run log
// directory.
type MetadataSpec struct {
	Name string `yaml:"name"`
}

// TestbedSpec holds the nodes and the work to run on them.
type TestbedSpec struct {
	Hosts  []HostSpec `yaml:"hosts"`
	LogDir string     `yaml:"logDir,omitempty"`
	Steps  []StepSpec `yaml:"steps,omitempty"`
}

// HostSpec describes one target node. Local nodes run commands as child
// processes of the controller; remote nodes are reached over SSH, optionally
// through a bastion.
type HostSpec struct {
	Name           string        `yaml:"name"`
	Address        string        `yaml:"address,omitempty"`
	Port           int           `yaml:"port,omitempty"`
	User           string        `yaml:"user,omitempty"`
	Password       string        `yaml:"password,omitempty"`
	PrivateKeyPath string        `yaml:"privateKeyPath,omitempty"`
	AgentSocket    string        `yaml:"agentSocket,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`

	Bastion     string `yaml:"bastion,omitempty"`
	BastionPort int    `yaml:"bastionPort,omitempty"`
	BastionUser string `yaml:"bastionUser,omitempty"`

	// Elevation selects how commands run as another user on this node:
	// "sudo" or "su". Fixed per node, not per step.
	Elevation string `yaml:"elevation,omitempty"`
	// Local marks a node executed on the controller itself.
	Local bool `yaml:"local,omitempty"`
}

// StepSpec is one command executed on one or more nodes.
type StepSpec struct {
	Name    string   `yaml:"name,omitempty"`
	Command string   `yaml:"command"`
	Nodes   []string `yaml:"nodes,omitempty"` // node names, or "all"
	User    string   `yaml:"user,omitempty"`  // run as this user via the node's elevation
	Shell   string   `yaml:"shell,omitempty"`
	// Collect lists remote file paths fetched into the run directory
	// after the step completed (remote nodes only).
	Collect []string `yaml:"collect,omitempty"`
}
