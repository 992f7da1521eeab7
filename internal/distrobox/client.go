package distrobox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

const (
	// DefaultBinary is the distrobox executable name.
	DefaultBinary = "distrobox"

	// TransferDir is the fixed in-container directory packages are
	// copied to before installation.
	TransferDir = "/tmp/pkgbridge"

	// placeholderName is used when a file name sanitizes to nothing.
	placeholderName = "package"
)

// Client runs distrobox subcommands through a shell.Runner.
//
// Usage:
//
//	c := distrobox.NewClient(shell.NewExecRunner(), "distrobox", logger)
//	boxes := c.List(ctx)
//	family, err := c.Classify(ctx, boxes[0].Name)
type Client struct {
	runner shell.Runner
	binary string
	logger *log.Logger
}

// NewClient creates a Client. An empty binary falls back to DefaultBinary.
func NewClient(runner shell.Runner, binary string, logger *log.Logger) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{runner: runner, binary: binary, logger: logger}
}

// Binary returns the distrobox executable this client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// Runner returns the process runner used by this client.
func (c *Client) Runner() shell.Runner {
	return c.runner
}

// EnterRequest builds "distrobox enter [--root] -n NAME -- sh -lc SCRIPT".
// A login shell is used so the container's profile (PATH additions from
// /etc/profile.d) applies to the script.
func (c *Client) EnterRequest(name, script string, asRoot bool) shell.Request {
	args := []string{"enter"}
	if asRoot {
		args = append(args, "--root")
	}
	args = append(args, "-n", name, "--", "sh", "-lc", script)
	return shell.Request{Name: c.binary, Args: args}
}

// ExecRequest builds "distrobox enter -n NAME -- ARGV..." for running a
// single program inside the container without a shell.
func (c *Client) ExecRequest(name string, argv ...string) shell.Request {
	args := append([]string{"enter", "-n", name, "--"}, argv...)
	return shell.Request{Name: c.binary, Args: args}
}

// Enter runs script inside the container with output attached to the
// terminal, so elevation prompts and package-manager progress reach the
// user. Returns an error when the script exits non-zero.
func (c *Client) Enter(ctx context.Context, name, script string, asRoot bool) error {
	req := c.EnterRequest(name, script, asRoot)
	c.logger.Debug("entering container", "box", name, "root", asRoot, "script", script)
	_, err := c.runner.Run(ctx, req)
	return err
}

// EnterCapture runs script inside the container and returns its output.
func (c *Client) EnterCapture(ctx context.Context, name, script string, asRoot bool) (shell.Result, error) {
	req := c.EnterRequest(name, script, asRoot)
	req.Capture = true
	c.logger.Debug("entering container (captured)", "box", name, "root", asRoot, "script", script)
	return c.runner.Run(ctx, req)
}

// Create creates a new container from image, accepting every distrobox
// confirmation non-interactively.
func (c *Client) Create(ctx context.Context, name, image string) error {
	req := shell.Request{
		Name: c.binary,
		// Both "-Y" and "--yes" are passed because distrobox releases
		// disagree on which spelling they accept.
		Args: []string{"create", "--name", name, "--image", image, "-Y", "--yes"},
	}
	if _, err := c.runner.Run(ctx, req); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(err, "failed to create container"), "box", name), "image", image)
	}
	return nil
}

// SanitizeFileName maps a local file name onto the characters that are
// safe in the in-container transfer path. Anything outside [A-Za-z0-9._-]
// becomes "_"; an empty result becomes "package".
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return placeholderName
	}
	return b.String()
}

// TransferPath returns the in-container destination for a local file.
func TransferPath(localPath string) string {
	return TransferDir + "/" + SanitizeFileName(filepath.Base(localPath))
}

// CopyIn streams the local file into the container and returns the
// destination path. The bytes travel over the child's standard input,
// so a broken pipe surfaces as a transfer error.
func (c *Client) CopyIn(ctx context.Context, name, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open package for transfer"), "path", localPath)
	}
	defer f.Close()

	dest := TransferPath(localPath)
	script := fmt.Sprintf("mkdir -p %s && cat > %s", shell.Quote(TransferDir), shell.Quote(dest))

	req := c.EnterRequest(name, script, false)
	req.Stdin = f
	req.Capture = true

	c.logger.Debug("copying package into container", "box", name, "src", localPath, "dest", dest)
	res, err := c.runner.Run(ctx, req)
	if err != nil {
		msg := "copy into container failed"
		if out := res.Combined(); out != "" {
			msg += " (" + out + ")"
		}
		return "", zerr.With(zerr.Wrap(err, msg), "box", name)
	}
	return dest, nil
}

// RemoteSize returns the byte size of path inside the container.
func (c *Client) RemoteSize(ctx context.Context, name, path string) (int64, error) {
	q := shell.Quote(path)
	script := fmt.Sprintf("stat -c %%s %s 2>/dev/null || wc -c < %s", q, q)

	res, err := c.EnterCapture(ctx, name, script, false)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to query size inside container"), "path", path)
	}

	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return 0, zerr.With(zerr.New("empty size output"), "path", path)
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "unparseable size output"), "output", res.Stdout)
	}
	return size, nil
}
