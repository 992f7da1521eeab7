package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/pkgbridge/internal/config"
	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/docker"
	"github.com/shinji-kodama/pkgbridge/internal/export"
	"github.com/shinji-kodama/pkgbridge/internal/install"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/selector"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
	"github.com/shinji-kodama/pkgbridge/internal/snapshot"
)

// engineLister returns the container engine's view of distrobox boxes.
type engineLister func(ctx context.Context) ([]model.ContainerRecord, error)

// app carries everything a command needs. It is built once per
// invocation; nothing in it is cached across runs.
type app struct {
	logger      *log.Logger
	out         io.Writer
	in          *bufio.Reader
	getenv      func(string) string
	lookPath    shell.LookPathFunc
	runner      shell.Runner
	paths       config.Paths
	settings    config.Settings
	interactive bool
	engine      engineLister

	client   *distrobox.Client
	exporter *export.Engine
}

// newApp resolves paths, loads settings and builds the logger. Settings
// that cannot be read fall back to defaults with a warning.
func newApp(out io.Writer, in io.Reader, getenv func(string) string, o globalOptions) (*app, error) {
	logger, err := newLogger(os.Stderr, o)
	if err != nil {
		return nil, err
	}

	paths := config.ResolvePaths(getenv)
	settings, err := config.LoadSettings(paths.ConfigFile)
	if err != nil {
		logger.Warn("using default settings", "error", err)
	}

	return &app{
		logger:      logger,
		out:         out,
		in:          bufio.NewReader(in),
		getenv:      getenv,
		lookPath:    exec.LookPath,
		runner:      shell.NewExecRunner(),
		paths:       paths,
		settings:    settings,
		interactive: isInteractive(),
		engine:      listEngineBoxes,
	}, nil
}

// newLogger builds the stderr logger from --log-level and --verbose.
func newLogger(w io.Writer, o globalOptions) (*log.Logger, error) {
	logger := log.NewWithOptions(w, log.Options{Prefix: "pkgbridge"})

	level := log.InfoLevel
	if o.logLevel != "" {
		parsed, err := log.ParseLevel(o.logLevel)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "invalid --log-level "+o.logLevel, err)
		}
		level = parsed
	}
	if o.verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger, nil
}

// distrobox returns the shared distrobox client.
func (a *app) distrobox() *distrobox.Client {
	if a.client == nil {
		a.client = distrobox.NewClient(a.runner, a.settings.Tools.Distrobox, a.logger)
	}
	return a.client
}

// directory returns the container directory used for selection. Listing
// gaps are filled from the container engine when one is reachable.
func (a *app) directory() selector.Directory {
	return &enrichedDirectory{Client: a.distrobox(), engine: a.engine, logger: a.logger}
}

// exportEngine returns the shared export engine, so the helper probe
// runs at most once per invocation.
func (a *app) exportEngine() *export.Engine {
	if a.exporter == nil {
		dirs := export.HostDirs{BinDir: a.paths.BinDir, AppsDir: a.paths.AppsDir}
		a.exporter = export.NewEngine(a.distrobox(), dirs, a.settings.Tools.Export, a.logger, a.out)
	}
	return a.exporter
}

func (a *app) pipeline() *install.Pipeline {
	return install.NewPipeline(install.Options{
		Client:       a.distrobox(),
		Exporter:     a.exportEngine(),
		NotifyBinary: a.settings.Tools.Notify,
		Logger:       a.logger,
		Out:          a.out,
	})
}

func (a *app) snapshots() *snapshot.Engine {
	return snapshot.NewEngine(a.distrobox(), snapshot.Store{Dir: a.paths.SnapshotDir}, a.exportEngine(), a.logger)
}

func (a *app) selector() *selector.Selector {
	return selector.New(a.directory(), a.prompter(), a.interactive, a.logger, a.out)
}

func (a *app) prompter() *terminalPrompter {
	return &terminalPrompter{in: a.in, out: a.out}
}

// containerName returns --container, falling back to PKGBRIDGE_CONTAINER.
func (a *app) containerName(o globalOptions) string {
	if o.container != "" {
		return o.container
	}
	return a.getenv("PKGBRIDGE_CONTAINER")
}

// enrichedDirectory fills missing image and runtime details of the
// distrobox listing from the container engine.
type enrichedDirectory struct {
	*distrobox.Client
	engine engineLister
	logger *log.Logger
}

// List returns the distrobox listing, enriched when it has gaps. Engine
// failures are ignored.
func (d *enrichedDirectory) List(ctx context.Context) []model.ContainerRecord {
	records := d.Client.List(ctx)
	if d.engine == nil || !hasGaps(records) {
		return records
	}
	known, err := d.engine(ctx)
	if err != nil {
		d.logger.Debug("container engine unavailable; listing left as is", "error", err)
		return records
	}
	return docker.Enrich(records, known)
}

func hasGaps(records []model.ContainerRecord) bool {
	for _, r := range records {
		if r.Image == "" || r.Runtime == "" || r.Runtime == model.RuntimeUnknown {
			return true
		}
	}
	return false
}

// listEngineBoxes asks the local engine for distrobox containers.
func listEngineBoxes(ctx context.Context) ([]model.ContainerRecord, error) {
	c, err := docker.NewClient()
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()
	return docker.ListDistroboxContainers(ctx, c)
}
