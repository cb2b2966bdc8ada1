// Package runlog owns the per-run log directory convention. Every run gets
// its own directory under a configured base; the sinks handed to executors
// and the files collected from remote nodes all land there.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/moselab/netbed/common"
)

const fileCreateFlags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC

// RunDir is one run's log directory.
type RunDir struct {
	fs   afero.Fs
	path string
	id   string
}

// New creates a fresh run directory under base, named after the testbed
// plus a timestamp and a short unique run id.
func New(fs afero.Fs, base, testbedName string) (*RunDir, error) {
	id := strings.Split(uuid.NewString(), "-")[0]
	dirName := fmt.Sprintf("%s-%s-%s", sanitize(testbedName), time.Now().Format("20060102-150405"), id)
	path := filepath.Join(base, dirName)

	if err := fs.MkdirAll(path, common.FileMode0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create run directory %s", path)
	}
	return &RunDir{fs: fs, path: path, id: id}, nil
}

// ID returns the short unique run identifier.
func (r *RunDir) ID() string {
	return r.id
}

// Path returns the run directory path.
func (r *RunDir) Path() string {
	return r.path
}

// StepLogPath names the log file receiving one stream of one step on one
// node, e.g. "node-a/ping-check.stdout.log".
func (r *RunDir) StepLogPath(node, step, stream string) string {
	return filepath.Join(r.path, sanitize(node), fmt.Sprintf("%s.%s.log", sanitize(step), stream))
}

// EnsureNodeDir creates the per-node subdirectory, returning its path.
func (r *RunDir) EnsureNodeDir(node string) (string, error) {
	dir := filepath.Join(r.path, sanitize(node))
	if err := r.fs.MkdirAll(dir, common.FileMode0755); err != nil {
		return "", errors.Wrapf(err, "failed to create node log directory %s", dir)
	}
	return dir, nil
}

// WriteCollected stores content fetched from a node (a remote log, a
// capture) under the node's subdirectory, keeping only the remote file's
// base name.
func (r *RunDir) WriteCollected(node, remotePath string, content io.Reader) (string, error) {
	dir, err := r.EnsureNodeDir(node)
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, filepath.Base(remotePath))

	f, err := r.fs.OpenFile(local, fileCreateFlags, common.FileMode0644)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create collected file %s", local)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		return "", errors.Wrapf(err, "failed to write collected file %s", local)
	}
	return local, nil
}

func sanitize(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(ch rune) rune {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return ch
		case ch == '-' || ch == '_' || ch == '.':
			return ch
		default:
			return '_'
		}
	}, name)
}
