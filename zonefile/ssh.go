package zonefile

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const DefaultSSHTimeout = 30 * time.Second

type SSHConfig struct {
	Host     string
	Username string
	Password string
	// KeyFile is a private key used before the password.
	KeyFile string
	// KnownHostsFile verifies the host key. Empty skips verification.
	KnownHostsFile string
	Timeout        time.Duration
}

func (c SSHConfig) address() string {
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}
	return net.JoinHostPort(strings.Trim(c.Host, "[]"), "22")
}

func (c SSHConfig) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if c.KeyFile != "" {
		keyData, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file %s: %w", c.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("parsing key file %s: %w", c.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if c.Password != "" {
		methods = append(methods, ssh.Password(c.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("no authentication methods configured")
	}
	return methods, nil
}

func (c SSHConfig) hostKeyCallback(logger *zap.Logger) (ssh.HostKeyCallback, error) {
	if c.KnownHostsFile == "" {
		logger.Warn("host key verification disabled", zap.String("host", c.Host))
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(c.KnownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("reading known hosts %s: %w", c.KnownHostsFile, err)
	}
	return callback, nil
}

func (c SSHConfig) clientConfig(logger *zap.Logger) (*ssh.ClientConfig, error) {
	if c.Host == "" || c.Username == "" {
		return nil, errors.New("ssh host and username are required")
	}
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := c.hostKeyCallback(logger)
	if err != nil {
		return nil, err
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultSSHTimeout
	}
	return &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// connect dials the host and performs the SSH handshake.
func connect(ctx context.Context, c SSHConfig, logger *zap.Logger) (*ssh.Client, error) {
	cfg, err := c.clientConfig(logger)
	if err != nil {
		return nil, fmt.Errorf("zonefile: %w", err)
	}
	addr := c.address()
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zonefile: could not connect to host %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("zonefile: ssh handshake with %s failed: %w", addr, err)
	}
	logger.Sugar().Infow("connected to SSH host", "host", addr, "username", c.Username)
	return ssh.NewClient(sshConn, chans, reqs), nil
}
