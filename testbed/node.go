package testbed

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/moselab/netbed/cache"
	"github.com/moselab/netbed/common"
	"github.com/moselab/netbed/config"
	"github.com/moselab/netbed/connector"
	"github.com/moselab/netbed/executor"
	"github.com/moselab/netbed/runlog"
)

// factProbes maps fact keys to the commands that discover them.
var factProbes = map[string]string{
	"arch":     "uname -m",
	"kernel":   "uname -r",
	"hostname": "hostname",
}

// Node is one testbed target: its executor, its transport (for remote
// nodes) and a cache of probed facts.
type Node struct {
	name  string
	spec  config.HostSpec
	conn  connector.Connection // nil for local nodes
	exec  executor.Executor
	facts *cache.Cache[string, string]
	log   *logrus.Entry
}

func newNode(spec config.HostSpec, log *logrus.Entry) (*Node, error) {
	nodeLog := log.WithField(common.LogFieldNode, spec.Name)
	strategy := executor.ElevationStrategy(spec.Elevation)

	n := &Node{
		name:  spec.Name,
		spec:  spec,
		facts: cache.New[string, string](),
		log:   nodeLog,
	}

	if spec.Local {
		n.exec = executor.NewLocalExecutor(spec.Name, strategy, nodeLog)
		return n, nil
	}

	conn, err := connector.NewConnection(connector.Config{
		Username:    spec.User,
		Password:    spec.Password,
		Address:     spec.Address,
		Port:        spec.Port,
		KeyFile:     spec.PrivateKeyPath,
		AgentSocket: spec.AgentSocket,
		Timeout:     spec.Timeout,
		Bastion:     spec.Bastion,
		BastionPort: spec.BastionPort,
		BastionUser: spec.BastionUser,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to node %s", spec.Name)
	}

	exec, err := executor.NewSSHExecutor(spec.Name, conn, strategy, nodeLog)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	n.conn = conn
	n.exec = exec
	return n, nil
}

func (n *Node) Name() string {
	return n.name
}

// Executor returns the node's command executor.
func (n *Node) Executor() executor.Executor {
	return n.exec
}

// Remote reports whether the node is reached over a transport (as opposed
// to running on the controller itself).
func (n *Node) Remote() bool {
	return n.conn != nil
}

// Fact returns a probed property of the node ("arch", "kernel",
// "hostname"), running the probe command at most once per key.
func (n *Node) Fact(ctx context.Context, key string) (string, error) {
	probe, ok := factProbes[key]
	if !ok {
		return "", errors.Errorf("unknown fact %q", key)
	}
	return n.facts.GetOrCompute(key, func() (string, error) {
		buf := &lineBuffer{}
		outcome, err := n.exec.Execute(ctx, executor.Request{
			Line:   probe,
			Stdout: buf,
		})
		if err != nil {
			return "", errors.Wrapf(err, "fact probe %q failed on node %s", key, n.name)
		}
		if outcome.ExitCode != 0 {
			return "", errors.Errorf("fact probe %q exited %d on node %s", key, outcome.ExitCode, n.name)
		}
		return strings.TrimSpace(strings.Join(buf.Lines(), "\n")), nil
	})
}

// Collect fetches a file from a remote node into the run directory,
// returning the local path.
func (n *Node) Collect(ctx context.Context, remotePath string, runDir *runlog.RunDir) (string, error) {
	if n.conn == nil {
		return "", errors.Errorf("node %s is local, nothing to collect", n.name)
	}
	rc, err := n.conn.Fetch(ctx, remotePath)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return runDir.WriteCollected(n.name, remotePath, rc)
}

// Close releases the node's transport, if any.
func (n *Node) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}

// lineBuffer is an in-memory LineSink used for fact probes.
type lineBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *lineBuffer) Consume(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	return nil
}

func (b *lineBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}
