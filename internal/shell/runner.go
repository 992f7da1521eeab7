package shell

//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/armon/circbuf"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// DefaultCaptureLimit is the number of trailing bytes kept per output
// stream when a request captures output.
const DefaultCaptureLimit = 64 * 1024

// Request describes one subprocess invocation.
type Request struct {
	// Name is the executable, resolved through PATH.
	Name string

	// Args are passed to the executable verbatim. No shell is involved
	// unless the caller asks for one explicitly (e.g. "sh", "-lc", script).
	Args []string

	// Stdin, when set, is streamed to the child's standard input. When nil,
	// streaming requests inherit the runner's stdin and capturing requests
	// read from the null device.
	Stdin io.Reader

	// Capture collects stdout and stderr into the Result instead of
	// streaming them to the terminal.
	Capture bool
}

// String renders the request as a single command line for logs and errors.
func (r Request) String() string {
	parts := make([]string, 0, len(r.Args)+1)
	parts = append(parts, r.Name)
	for _, a := range r.Args {
		parts = append(parts, Quote(a))
	}
	return strings.Join(parts, " ")
}

// Result holds the outcome of a finished subprocess.
type Result struct {
	// Stdout and Stderr are only populated for capturing requests. They
	// hold at most the runner's capture limit of trailing bytes each.
	Stdout string
	Stderr string

	// ExitCode is the child's exit status, or -1 when it never started.
	ExitCode int
}

// Combined returns stdout followed by stderr, trimmed.
func (r Result) Combined() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Runner executes subprocesses. A non-nil error is returned when the
// process could not be started or exited non-zero; the Result is filled
// in as far as possible in both cases. A missing executable is reported
// as model.ErrToolMissing.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ExecRunner is the os/exec backed Runner used in production.
type ExecRunner struct {
	// Stdin, Stdout and Stderr are the terminal streams used by
	// non-capturing requests.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// CaptureLimit bounds captured output per stream.
	CaptureLimit int64
}

// NewExecRunner creates a Runner attached to the process's own terminal.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		CaptureLimit: DefaultCaptureLimit,
	}
}

// Run executes req and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	// #nosec G204 -- commands are assembled internally from quoted values
	cmd := exec.CommandContext(ctx, req.Name, req.Args...)

	var stdout, stderr *circbuf.Buffer
	if req.Capture {
		limit := r.CaptureLimit
		if limit <= 0 {
			limit = DefaultCaptureLimit
		}
		// circbuf only fails for non-positive sizes, which is excluded above.
		stdout, _ = circbuf.NewBuffer(limit)
		stderr, _ = circbuf.NewBuffer(limit)
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		cmd.Stdin = req.Stdin
	} else {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
		cmd.Stdin = req.Stdin
		if cmd.Stdin == nil {
			cmd.Stdin = r.Stdin
		}
	}

	err := cmd.Run()

	res := Result{ExitCode: -1}
	if stdout != nil {
		res.Stdout = stdout.String()
		res.Stderr = stderr.String()
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if IsNotFound(err) {
			return res, zerr.With(zerr.Wrap(model.ErrToolMissing, req.Name+" is not installed: "+err.Error()), "command", req.Name)
		}
		wrapped := zerr.With(zerr.Wrap(err, "command failed"), "command", req.String())
		return res, zerr.With(wrapped, "exit_code", res.ExitCode)
	}
	return res, nil
}

// IsNotFound reports whether err means the executable itself is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, model.ErrToolMissing) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

// LookPathFunc resolves an executable on PATH. It matches exec.LookPath and
// is injected where tests need to control which host tools "exist".
type LookPathFunc func(file string) (string, error)
