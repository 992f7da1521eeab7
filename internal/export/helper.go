package export

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// DefaultHelperBinary is the export helper shipped with distrobox.
const DefaultHelperBinary = "distrobox-export"

// capabilityMarker is the flag whose presence in the helper's help text
// identifies the host-side calling convention.
const capabilityMarker = "--container"

// Helper exports and unexports single artifacts for one container.
// name is a bare binary name for the *Bin methods and an absolute
// in-container desktop entry path for the *App methods.
type Helper interface {
	ExportBin(ctx context.Context, box, name string) error
	ExportApp(ctx context.Context, box, path string) error
	UnexportBin(ctx context.Context, box, name string) error
	UnexportApp(ctx context.Context, box, path string) error
}

// HostHelper invokes distrobox-export from the host with --container.
type HostHelper struct {
	runner shell.Runner
	binary string
}

// NewHostHelper creates a HostHelper. An empty binary falls back to
// DefaultHelperBinary.
func NewHostHelper(runner shell.Runner, binary string) *HostHelper {
	if binary == "" {
		binary = DefaultHelperBinary
	}
	return &HostHelper{runner: runner, binary: binary}
}

// ExportBin exports by name first, then retries with /usr/bin/NAME for
// helper releases that only accept absolute paths.
func (h *HostHelper) ExportBin(ctx context.Context, box, name string) error {
	if err := h.run(ctx, "--container", box, "--bin", name); err == nil {
		return nil
	}
	return h.run(ctx, "--container", box, "--bin", binPath(name))
}

func (h *HostHelper) ExportApp(ctx context.Context, box, path string) error {
	return h.run(ctx, "--container", box, "--app", path)
}

func (h *HostHelper) UnexportBin(ctx context.Context, box, name string) error {
	return h.run(ctx, "--container", box, "--delete", "--bin", name)
}

func (h *HostHelper) UnexportApp(ctx context.Context, box, path string) error {
	return h.run(ctx, "--container", box, "--delete", "--app", path)
}

func (h *HostHelper) run(ctx context.Context, args ...string) error {
	return runHelper(ctx, h.runner, shell.Request{Name: h.binary, Args: args, Capture: true})
}

// InContainerHelper enters the container and runs distrobox-export
// there, passing absolute paths as older helper releases require.
type InContainerHelper struct {
	client *distrobox.Client
	binary string
}

// NewInContainerHelper creates an InContainerHelper. An empty binary
// falls back to DefaultHelperBinary.
func NewInContainerHelper(client *distrobox.Client, binary string) *InContainerHelper {
	if binary == "" {
		binary = DefaultHelperBinary
	}
	return &InContainerHelper{client: client, binary: binary}
}

func (h *InContainerHelper) ExportBin(ctx context.Context, box, name string) error {
	return h.run(ctx, box, "--bin", binPath(name))
}

func (h *InContainerHelper) ExportApp(ctx context.Context, box, path string) error {
	return h.run(ctx, box, "--app", path)
}

func (h *InContainerHelper) UnexportBin(ctx context.Context, box, name string) error {
	return h.run(ctx, box, "--delete", "--bin", binPath(name))
}

func (h *InContainerHelper) UnexportApp(ctx context.Context, box, path string) error {
	return h.run(ctx, box, "--delete", "--app", path)
}

func (h *InContainerHelper) run(ctx context.Context, box string, args ...string) error {
	req := h.client.ExecRequest(box, append([]string{h.binary}, args...)...)
	req.Capture = true
	return runHelper(ctx, h.client.Runner(), req)
}

// ProbeHelper selects the calling convention supported by the installed
// helper. A helper that cannot be run on the host selects the in-container
// convention.
func ProbeHelper(ctx context.Context, client *distrobox.Client, binary string, logger *log.Logger) Helper {
	if binary == "" {
		binary = DefaultHelperBinary
	}

	res, err := client.Runner().Run(ctx, shell.Request{Name: binary, Args: []string{"--help"}, Capture: true})
	if err == nil || res.ExitCode > 0 {
		if strings.Contains(res.Stdout, capabilityMarker) || strings.Contains(res.Stderr, capabilityMarker) {
			logger.Debug("export helper supports host-side calls", "helper", binary)
			return NewHostHelper(client.Runner(), binary)
		}
	}

	logger.Debug("export helper requires in-container calls", "helper", binary, "error", err)
	return NewInContainerHelper(client, binary)
}

func runHelper(ctx context.Context, runner shell.Runner, req shell.Request) error {
	res, err := runner.Run(ctx, req)
	if err == nil {
		return nil
	}
	msg := req.String() + " failed"
	if out := res.Combined(); out != "" {
		msg += ": " + out
	}
	return zerr.Wrap(model.ErrExportFailure, msg)
}

func binPath(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/usr/bin/" + name
}
