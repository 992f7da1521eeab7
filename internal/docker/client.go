package docker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/client"
	"go.trai.ch/zerr"
)

// defaultPingTimeout bounds a Ping against an unresponsive daemon.
const defaultPingTimeout = 5 * time.Second

// Runtime names reported by Client.Runtime.
const (
	RuntimeDocker = "docker"
	RuntimePodman = "podman"
)

// ErrNoSocket reports that no engine socket was found.
var ErrNoSocket = errors.New("no container engine socket found")

// Client wraps the Docker Engine SDK client together with the host it
// was connected to.
//
// Usage:
//
//	c, err := docker.NewClient()
//	if err != nil { /* no engine; carry on without it */ }
//	defer c.Close()
type Client struct {
	inner *client.Client
	host  string
}

// NewClient creates a client with automatic socket detection.
//
// The detection order is:
//  1. DOCKER_HOST, used as-is
//  2. /var/run/docker.sock
//  3. $XDG_RUNTIME_DIR/podman/podman.sock
//  4. /run/podman/podman.sock
func NewClient() (*Client, error) {
	host, err := detectHost(os.Getenv, socketExists)
	if err != nil {
		return nil, err
	}
	return newClientWithHost(host)
}

func newClientWithHost(host string) (*Client, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create engine client"), "host", host)
	}
	return &Client{inner: c, host: host}, nil
}

// detectHost returns the engine URI following the NewClient order.
func detectHost(getenv func(string) string, exists func(string) bool) (string, error) {
	if h := getenv("DOCKER_HOST"); h != "" {
		return h, nil
	}
	candidates := []string{"/var/run/docker.sock"}
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, "podman", "podman.sock"))
	}
	candidates = append(candidates, "/run/podman/podman.sock")

	for _, p := range candidates {
		if exists(p) {
			return "unix://" + p, nil
		}
	}
	return "", zerr.With(zerr.Wrap(ErrNoSocket, "looked in "+strings.Join(candidates, ", ")), "candidates", candidates)
}

func socketExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RuntimeForHost infers the engine name from its connection string.
func RuntimeForHost(host string) string {
	if strings.Contains(host, "podman") {
		return RuntimePodman
	}
	return RuntimeDocker
}

// Host returns the connection string in use.
func (c *Client) Host() string {
	return c.host
}

// Runtime reports "podman" or "docker" based on the connected socket.
func (c *Client) Runtime() string {
	return RuntimeForHost(c.host)
}

// Ping checks that the engine answers within defaultPingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return zerr.With(zerr.Wrap(err, "container engine is not responding"), "host", c.host)
	}
	return nil
}

// Close releases the underlying client. It is safe to call more than once.
func (c *Client) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// Inner returns the underlying SDK client.
func (c *Client) Inner() *client.Client {
	return c.inner
}
