package common

import (
	"io/fs"
	"path/filepath"
)

const (
	AppName    = "netbed"
	TmpDirBase = "/tmp/"
)

func GetTmpDir() string {
	return filepath.Join(TmpDirBase, AppName) + "/"
}

// Ordered logger field names shared across the testbed. The formatter
// prints them in this order so log lines from different subsystems line up.
const (
	LogFieldApp      = "App"
	LogFieldTestbed  = "Testbed"
	LogFieldNode     = "Node"
	LogFieldExecutor = "Executor"
	LogFieldCommand  = "Command"
	LogFieldStream   = "Stream"
)

const (
	// FileMode0755 represents rwxr-xr-x
	FileMode0755 fs.FileMode = 0755
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
	// FileMode0600 represents rw-------
	FileMode0600 fs.FileMode = 0600
)

const (
	// StdoutStream and StderrStream name the two output streams of an
	// execution channel in log fields and error messages.
	StdoutStream = "stdout"
	StderrStream = "stderr"
)
