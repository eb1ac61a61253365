package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/golang/glog"
	scp "github.com/povsister/scp"
	"golang.org/x/crypto/ssh"
)

// DefaultSSHPort is used when a host is created without a port.
const DefaultSSHPort = 22

// Host is a machine reachable over SSH. Every call opens its own connection so a Host is safe for concurrent use.
type Host struct {
	Name    string
	address string
	config  *ssh.ClientConfig
}

// NewHost returns a Host that authenticates as user with the private key at keyPath, with password, or with both.
func NewHost(name string, port int, user, password, keyPath string) (*Host, error) {
	if name == "" {
		glog.V(100).Info("The host name is empty")

		return nil, fmt.Errorf("host name cannot be empty")
	}

	if user == "" {
		glog.V(100).Info("The user is empty")

		return nil, fmt.Errorf("user cannot be empty")
	}

	if port == 0 {
		port = DefaultSSHPort
	}

	var config *ssh.ClientConfig

	switch {
	case keyPath != "":
		glog.V(100).Infof("Build a SSH config from private key %s", keyPath)

		keyBuf, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("unable to open private key %s: %w", keyPath, err)
		}

		signer, err := ssh.ParsePrivateKey(keyBuf)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key %s: %w", keyPath, err)
		}

		config = &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		}

		if password != "" {
			config.Auth = append(config.Auth, ssh.Password(password))
		}
	case password != "":
		glog.V(100).Info("Build a SSH config from username/password")

		config = scp.NewSSHConfigFromPassword(user, password)
	default:
		return nil, fmt.Errorf("host %s needs a password or a private key", name)
	}

	return &Host{
		Name:    name,
		address: net.JoinHostPort(name, strconv.Itoa(port)),
		config:  config,
	}, nil
}

// Address returns host:port.
func (host *Host) Address() string {
	return host.address
}

// Run executes argv on the host and returns its standard output. A non-zero exit status is returned as
// *CommandError carrying both output streams.
func (host *Host) Run(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command cannot be empty")
	}

	command := FormatCommand(argv...)

	glog.V(100).Infof("Execute cmd %s on remote host %s", command, host.address)

	client, err := host.dial()
	if err != nil {
		return "", err
	}

	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session on %s: %w", host.address, err)
	}

	defer session.Close()

	var stdout, stderr bytes.Buffer

	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-done:
		}
	}()

	err = session.Run(command)
	if err != nil {
		if ctx.Err() != nil {
			return stdout.String(), fmt.Errorf("command %q on %s interrupted: %w", command, host.address, ctx.Err())
		}

		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), &CommandError{
				Target:   host.Name,
				Command:  command,
				ExitCode: exitErr.ExitStatus(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}

		return stdout.String(), fmt.Errorf("failed to run %q on %s: %w", command, host.address, err)
	}

	glog.V(100).Infof("SSH command output: %s", stdout.String())

	return stdout.String(), nil
}

// CopyTo transfers the local file source to destination on the host.
func (host *Host) CopyTo(ctx context.Context, source, destination string) error {
	if source == "" || destination == "" {
		return fmt.Errorf("source and destination cannot be empty")
	}

	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("cannot copy %s: %w", source, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := host.dial()
	if err != nil {
		return err
	}

	defer client.Close()

	glog.V(100).Infof("Transfer file %s to %s:%s", source, host.address, destination)

	err = client.CopyFileToRemote(source, destination, &scp.FileTransferOption{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s:%s: %w", source, host.address, destination, err)
	}

	return nil
}

func (host *Host) dial() (*scp.Client, error) {
	glog.V(100).Infof("Dial SSH to %s", host.address)

	client, err := scp.NewClient(host.address, host.config, &scp.ClientOption{})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", host.address, err)
	}

	return client, nil
}
