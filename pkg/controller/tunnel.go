package controller

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
)

// SSHTunnel dials TCP connections through an SSH jump host. Used when the
// controller's management network is only reachable from a bastion.
type SSHTunnel struct {
	addr      string
	sshClient *ssh.Client
}

// NewSSHTunnel connects to the jump host with password authentication.
func NewSSHTunnel(cfg config.SSHConfig) (*SSHTunnel, error) {
	hostKeyCallback, err := hostKeyCallback(cfg.KnownHosts)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultSSHPort
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	sshClient, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		HostKeyCallback: hostKeyCallback,
	})
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	util.WithField("jump", addr).Debug("ssh jump host connected")
	return &SSHTunnel{addr: addr, sshClient: sshClient}, nil
}

func hostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		util.Warnf("controller.ssh.known_hosts not set: jump host key is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts %s: %w", knownHostsFile, err)
	}
	return cb, nil
}

// DialContext opens a connection to addr from the jump host. Its signature
// matches http.Transport.DialContext.
func (t *SSHTunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := t.sshClient.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s via %s: %w", addr, t.addr, err)
	}
	return conn, nil
}

// Close closes the SSH connection.
func (t *SSHTunnel) Close() error {
	return t.sshClient.Close()
}
