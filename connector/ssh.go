package connector

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/moselab/netbed/executor"
	"github.com/moselab/netbed/file"
	"github.com/moselab/netbed/logger"
)

// Config holds everything needed to reach and authenticate against one
// host, optionally hopping through a bastion.
type Config struct {
	Username    string
	Password    string
	Address     string
	Port        int
	PrivateKey  string
	KeyFile     string
	AgentSocket string
	Timeout     time.Duration
	Bastion     string
	BastionPort int
	BastionUser string
}

const socketEnvPrefix = "env:"

var _ Connection = (*connection)(nil)

type connection struct {
	mu         sync.Mutex
	sftpclient *sftp.Client
	sshclient  *ssh.Client
	config     Config

	connCtx    context.Context
	connCancel context.CancelFunc

	agentSocketConn net.Conn
}

// NewConnection dials the host described by cfg and returns a live
// Connection carrying both an SSH client and an SFTP client.
func NewConnection(cfg Config) (Connection, error) {
	var err error
	cfg, err = validateConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate ssh connection parameters")
	}

	authMethods := make([]ssh.AuthMethod, 0)
	conn := &connection{config: cfg}

	if len(cfg.Password) > 0 {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}

	if len(cfg.PrivateKey) > 0 {
		signer, parseErr := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "the given SSH key could not be parsed")
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if len(cfg.AgentSocket) > 0 {
		addr := cfg.AgentSocket
		if strings.HasPrefix(cfg.AgentSocket, socketEnvPrefix) {
			envName := strings.TrimPrefix(cfg.AgentSocket, socketEnvPrefix)
			if envAddr := os.Getenv(envName); len(envAddr) > 0 {
				addr = envAddr
			} else {
				logger.Log.Warnf("SSH agent environment variable %s not found, using socket string %s", envName, addr)
			}
		}

		var dialErr error
		conn.agentSocketConn, dialErr = net.Dial("unix", addr)
		if dialErr != nil {
			return nil, errors.Wrapf(dialErr, "could not open SSH agent socket %q", addr)
		}

		agentClient := agent.NewClient(conn.agentSocketConn)
		signers, signersErr := agentClient.Signers()
		if signersErr != nil {
			_ = conn.agentSocketConn.Close()
			conn.agentSocketConn = nil
			return nil, errors.Wrap(signersErr, "error when creating signer for SSH agent")
		}
		authMethods = append(authMethods, ssh.PublicKeys(signers...))
	}

	sshClientConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Timeout:         cfg.Timeout,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	targetHost := cfg.Address
	targetPort := cfg.Port

	if cfg.Bastion != "" {
		targetHost = cfg.Bastion
		targetPort = cfg.BastionPort
		sshClientConfig.User = cfg.BastionUser
	}

	endpoint := net.JoinHostPort(targetHost, strconv.Itoa(targetPort))

	client, err := ssh.Dial("tcp", endpoint, sshClientConfig)
	if err != nil {
		conn.cleanupAgentSocket()
		return nil, errors.Wrapf(err, "could not establish connection to %s", endpoint)
	}

	if cfg.Bastion != "" {
		endpointBehindBastion := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
		connToTarget, dialErr := client.Dial("tcp", endpointBehindBastion)
		if dialErr != nil {
			_ = client.Close()
			conn.cleanupAgentSocket()
			return nil, errors.Wrapf(dialErr, "could not establish connection to target %s via bastion", endpointBehindBastion)
		}

		targetSSHConfig := &ssh.ClientConfig{
			User:            cfg.Username,
			Timeout:         cfg.Timeout,
			Auth:            authMethods,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		}
		ncc, chans, reqs, clientConnErr := ssh.NewClientConn(connToTarget, endpointBehindBastion, targetSSHConfig)
		if clientConnErr != nil {
			_ = connToTarget.Close()
			_ = client.Close()
			conn.cleanupAgentSocket()
			return nil, errors.Wrapf(clientConnErr, "failed to create SSH client connection to %s via bastion", endpointBehindBastion)
		}
		_ = client.Close()
		client = ssh.NewClient(ncc, chans, reqs)
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		conn.cleanupAgentSocket()
		return nil, errors.Wrap(err, "failed to create SFTP client")
	}

	conn.sshclient = client
	conn.sftpclient = sftpClient
	conn.connCtx, conn.connCancel = context.WithCancel(context.Background())

	return conn, nil
}

func (c *connection) cleanupAgentSocket() {
	if c.agentSocketConn != nil {
		_ = c.agentSocketConn.Close()
		c.agentSocketConn = nil
	}
}

func validateConfig(cfg Config) (Config, error) {
	if len(cfg.Username) == 0 {
		return cfg, errors.New("no username specified for SSH connection")
	}
	if len(cfg.Address) == 0 {
		return cfg, errors.New("no address specified for SSH connection")
	}
	if len(cfg.Password) == 0 && len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) == 0 && len(cfg.AgentSocket) == 0 {
		return cfg, errors.New("must specify at least one of password, private key, keyfile or agent socket")
	}

	if len(cfg.PrivateKey) == 0 && len(cfg.KeyFile) > 0 {
		content, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read keyfile %q", cfg.KeyFile)
		}
		cfg.PrivateKey = string(content)
	}

	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.Bastion != "" {
		if cfg.BastionPort <= 0 {
			cfg.BastionPort = 22
		}
		if cfg.BastionUser == "" {
			cfg.BastionUser = cfg.Username
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg, nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshclient == nil && c.sftpclient == nil && c.agentSocketConn == nil {
		return nil
	}

	if c.connCancel != nil {
		c.connCancel()
	}

	var combined []string
	if c.sftpclient != nil {
		if err := c.sftpclient.Close(); err != nil {
			combined = append(combined, "sftp close error: "+err.Error())
		}
		c.sftpclient = nil
	}
	if c.sshclient != nil {
		if err := c.sshclient.Close(); err != nil {
			combined = append(combined, "ssh close error: "+err.Error())
		}
		c.sshclient = nil
	}
	if c.agentSocketConn != nil {
		if err := c.agentSocketConn.Close(); err != nil {
			combined = append(combined, "agent socket close error: "+err.Error())
		}
		c.agentSocketConn = nil
	}

	if len(combined) > 0 {
		return errors.New(strings.Join(combined, "; "))
	}
	return nil
}

// NewSession opens one execution channel on the connection. No PTY is
// requested: a PTY would fold the remote stderr stream into stdout and the
// executors depend on the two streams staying independent.
func (c *connection) NewSession(ctx context.Context) (executor.Session, error) {
	c.mu.Lock()
	client := c.sshclient
	c.mu.Unlock()

	if client == nil {
		return nil, errors.New("ssh connection is closed or not initialized")
	}

	opCtx, opCancel := context.WithCancel(ctx)
	defer opCancel()
	go func() {
		select {
		case <-c.connCtx.Done():
			opCancel()
		case <-opCtx.Done():
		}
	}()

	sess, err := openWithContext(opCtx, func() (executor.Session, error) {
		s, err := client.NewSession()
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ssh session")
	}
	return sess, nil
}

// openWithContext runs open in its own goroutine so a stalled transport
// cannot block the caller past ctx. A session that arrives only after ctx
// is done is closed rather than leaked.
func openWithContext(ctx context.Context, open func() (executor.Session, error)) (executor.Session, error) {
	type result struct {
		sess executor.Session
		err  error
	}
	done := make(chan result)

	go func() {
		s, err := open()
		select {
		case done <- result{sess: s, err: err}:
		case <-ctx.Done():
			if s != nil {
				_ = s.Close()
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.sess, res.err
	}
}

func (c *connection) Fetch(ctx context.Context, remotePath string) (io.ReadCloser, error) {
	c.mu.Lock()
	sftpClient := c.sftpclient
	c.mu.Unlock()
	if sftpClient == nil {
		return nil, errors.New("sftp client is not initialized or connection is closed")
	}

	f, err := sftpClient.Open(remotePath)
	if err != nil {
		return nil, errors.Wrapf(err, "sftp: failed to open remote file %s for fetching", remotePath)
	}

	if ctx.Err() != nil {
		_ = f.Close()
		return nil, ctx.Err()
	}

	return f, nil
}

func (c *connection) DownloadFile(ctx context.Context, remotePath string, localPath string) error {
	src, err := c.Fetch(ctx, remotePath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := file.CreateDir(filepath.Dir(localPath)); err != nil {
		return errors.Wrapf(err, "failed to create local directory for %s", localPath)
	}

	dst, err := os.Create(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create local file %s", localPath)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", remotePath, localPath)
	}
	return nil
}

func (c *connection) StatRemote(ctx context.Context, remotePath string) (os.FileInfo, error) {
	c.mu.Lock()
	sftpClient := c.sftpclient
	c.mu.Unlock()
	if sftpClient == nil {
		return nil, errors.New("sftp client is not initialized or connection is closed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := sftpClient.Stat(remotePath)
	if err != nil {
		if os.IsNotExist(err) || strings.Contains(strings.ToLower(err.Error()), "no such file") {
			return nil, os.ErrNotExist
		}
		return nil, errors.Wrapf(err, "sftp: failed to stat remote path %s", remotePath)
	}
	return info, nil
}

func (c *connection) RemoteFileExist(ctx context.Context, remotePath string) (bool, error) {
	info, err := c.StatRemote(ctx, remotePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}
