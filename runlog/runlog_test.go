package runlog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesUniqueRunDirs(t *testing.T) {
	fs := afero.NewMemMapFs()

	r1, err := New(fs, "/logs", "wifi-lab")
	require.NoError(t, err)
	r2, err := New(fs, "/logs", "wifi-lab")
	require.NoError(t, err)

	assert.NotEqual(t, r1.Path(), r2.Path(), "two runs must not share a directory")
	assert.NotEmpty(t, r1.ID())

	exists, err := afero.DirExists(fs, r1.Path())
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, strings.HasPrefix(filepath.Base(r1.Path()), "wifi-lab-"))
}

func TestStepLogPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	r, err := New(fs, "/logs", "lab")
	require.NoError(t, err)

	got := r.StepLogPath("node-a", "ping-check", "stdout")
	assert.Equal(t, filepath.Join(r.Path(), "node-a", "ping-check.stdout.log"), got)

	// Hostile characters are flattened rather than escaping the tree.
	got = r.StepLogPath("../evil", "a/b", "stderr")
	assert.NotContains(t, got, "..")
	assert.Equal(t, filepath.Join(r.Path(), ".._evil", "a_b.stderr.log"), got)
}

func TestWriteCollected(t *testing.T) {
	fs := afero.NewMemMapFs()
	r, err := New(fs, "/logs", "lab")
	require.NoError(t, err)

	local, err := r.WriteCollected("node-a", "/var/log/iperf.log", strings.NewReader("bandwidth 10Mbps\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Path(), "node-a", "iperf.log"), local)

	content, err := afero.ReadFile(fs, local)
	require.NoError(t, err)
	assert.Equal(t, "bandwidth 10Mbps\n", string(content))
}

func TestNewFailsOnUnwritableBase(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := New(fs, "/logs", "lab")
	assert.Error(t, err)
}
