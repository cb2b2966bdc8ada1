package connector

import (
	"context"
	"io"
	"os"

	"github.com/moselab/netbed/executor"
)

// FileOperator is the file-retrieval subset of a connection: enough for the
// testbed to collect logs and captures a node produced during a run.
type FileOperator interface {
	Fetch(ctx context.Context, remotePath string) (io.ReadCloser, error)
	DownloadFile(ctx context.Context, remotePath string, localPath string) error
	StatRemote(ctx context.Context, remotePath string) (os.FileInfo, error)
	RemoteFileExist(ctx context.Context, remotePath string) (bool, error)
}

// Connection is one authenticated transport to a host. Its lifetime is
// owned by whoever dialed it (the testbed); executors only open execution
// channels on top of it via the SessionOpener side.
type Connection interface {
	executor.SessionOpener
	FileOperator
	Close() error
}
