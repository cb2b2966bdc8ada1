// Package testbed wires config-declared nodes to executors and runs
// command steps on them, giving every run its own log directory.
package testbed

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/moselab/netbed/common"
	"github.com/moselab/netbed/config"
	"github.com/moselab/netbed/executor"
	"github.com/moselab/netbed/logsink"
	"github.com/moselab/netbed/runlog"
)

// Testbed holds the dialed nodes of one configuration and the run
// directory their logs land in.
type Testbed struct {
	name     string
	nodes    map[string]*Node
	order    []string
	runDir   *runlog.RunDir
	log      *logrus.Entry
	failFast bool
}

// StepResult records one step on one node.
type StepResult struct {
	Step     string
	Node     string
	Command  string
	ExitCode int
	Err      error
}

// Failed reports whether the step either errored or exited non-zero.
func (r StepResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// New dials every host in cfg and prepares a run directory. On any
// connection failure the already-dialed nodes are closed again.
func New(cfg *config.TestbedConfig, log *logrus.Entry) (*Testbed, error) {
	// Sinks are real files handed to executors, so the run directory
	// lives on the OS filesystem here; runlog itself stays fs-agnostic.
	runDir, err := runlog.New(afero.NewOsFs(), cfg.Spec.LogDir, cfg.Metadata.Name)
	if err != nil {
		return nil, err
	}

	tb := &Testbed{
		name:   cfg.Metadata.Name,
		nodes:  make(map[string]*Node, len(cfg.Spec.Hosts)),
		runDir: runDir,
		log:    log.WithField(common.LogFieldTestbed, cfg.Metadata.Name),
	}

	for _, host := range cfg.Spec.Hosts {
		node, err := newNode(host, tb.log)
		if err != nil {
			_ = tb.Close()
			return nil, err
		}
		tb.nodes[node.Name()] = node
		tb.order = append(tb.order, node.Name())
	}

	tb.log.Infof("testbed ready: %d node(s), run directory %s", len(tb.nodes), runDir.Path())
	return tb, nil
}

// SetFailFast makes Run stop at the first failed step.
func (tb *Testbed) SetFailFast(v bool) {
	tb.failFast = v
}

// RunDir returns this run's log directory.
func (tb *Testbed) RunDir() *runlog.RunDir {
	return tb.runDir
}

// Node looks up a node by name.
func (tb *Testbed) Node(name string) (*Node, bool) {
	n, ok := tb.nodes[name]
	return n, ok
}

// Nodes returns the nodes in configuration order.
func (tb *Testbed) Nodes() []*Node {
	out := make([]*Node, 0, len(tb.order))
	for _, name := range tb.order {
		out = append(out, tb.nodes[name])
	}
	return out
}

// Run executes the steps in order, each on its configured nodes. Step
// failures (errors and non-zero exits) are recorded in the results; Run
// itself only returns an error when the context is cancelled or fail-fast
// stopped the run early.
func (tb *Testbed) Run(ctx context.Context, steps []config.StepSpec) ([]StepResult, error) {
	var results []StepResult

	for _, step := range steps {
		for _, node := range tb.resolveNodes(step.Nodes) {
			if err := ctx.Err(); err != nil {
				return results, errors.Wrap(err, "run cancelled")
			}

			res := tb.runStep(ctx, node, step)
			results = append(results, res)

			if res.Failed() {
				tb.log.WithField(common.LogFieldNode, node.Name()).
					Warnf("step %s failed: exit=%d err=%v", step.Name, res.ExitCode, res.Err)
				if tb.failFast {
					return results, errors.Errorf("run aborted: step %s failed on node %s", step.Name, node.Name())
				}
				continue
			}

			tb.collect(ctx, node, step)
		}
	}

	return results, nil
}

func (tb *Testbed) resolveNodes(names []string) []*Node {
	for _, name := range names {
		if name == "all" {
			return tb.Nodes()
		}
	}
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		if n, ok := tb.nodes[name]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (tb *Testbed) runStep(ctx context.Context, node *Node, step config.StepSpec) StepResult {
	res := StepResult{Step: step.Name, Node: node.Name(), Command: step.Command}

	if _, err := tb.runDir.EnsureNodeDir(node.Name()); err != nil {
		res.Err = err
		return res
	}

	stdoutSink, err := logsink.NewFile(tb.runDir.StepLogPath(node.Name(), step.Name, common.StdoutStream), logrus.InfoLevel)
	if err != nil {
		res.Err = err
		return res
	}
	defer stdoutSink.Close()

	stderrSink, err := logsink.NewFile(tb.runDir.StepLogPath(node.Name(), step.Name, common.StderrStream), logrus.ErrorLevel)
	if err != nil {
		res.Err = err
		return res
	}
	defer stderrSink.Close()

	outcome, err := node.Executor().Execute(ctx, executor.Request{
		Line:   step.Command,
		User:   step.User,
		Shell:  step.Shell,
		Stdout: stdoutSink,
		Stderr: stderrSink,
	})
	if err != nil {
		res.Err = err
	}
	if outcome != nil {
		res.ExitCode = outcome.ExitCode
		res.Command = outcome.Command
	}
	return res
}

// collect fetches the step's declared remote files into the run directory.
// Collection failures are logged, not fatal: the step itself already
// succeeded.
func (tb *Testbed) collect(ctx context.Context, node *Node, step config.StepSpec) {
	if len(step.Collect) == 0 || !node.Remote() {
		return
	}
	for _, remotePath := range step.Collect {
		local, err := node.Collect(ctx, remotePath, tb.runDir)
		if err != nil {
			tb.log.WithField(common.LogFieldNode, node.Name()).
				Warnf("failed to collect %s: %v", remotePath, err)
			continue
		}
		tb.log.WithField(common.LogFieldNode, node.Name()).
			Debugf("collected %s -> %s", remotePath, local)
	}
}

// Close releases every node's transport.
func (tb *Testbed) Close() error {
	var failed []string
	for _, name := range tb.order {
		if node, ok := tb.nodes[name]; ok {
			if err := node.Close(); err != nil {
				failed = append(failed, name+": "+err.Error())
			}
		}
	}
	if len(failed) > 0 {
		return errors.Errorf("failed to close node connections: %s", strings.Join(failed, "; "))
	}
	return nil
}
