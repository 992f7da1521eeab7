package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/export"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/pkgformat"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// DefaultNotifyBinary sends the desktop notification after an install.
const DefaultNotifyBinary = "notify-send"

// Exporter publishes and removes package artifacts on the host.
// *export.Engine satisfies it.
type Exporter interface {
	Export(ctx context.Context, box string, m model.PackageManifest) export.Report
	Unexport(ctx context.Context, box string, m model.PackageManifest)
}

// Options configures a Pipeline.
type Options struct {
	Client       *distrobox.Client
	Exporter     Exporter
	NotifyBinary string
	Logger       *log.Logger
	Out          io.Writer
}

// Pipeline installs, uninstalls and re-exports packages in containers.
type Pipeline struct {
	client       *distrobox.Client
	exporter     Exporter
	notifyBinary string
	logger       *log.Logger
	out          io.Writer
}

// NewPipeline creates a Pipeline from opts.
func NewPipeline(opts Options) *Pipeline {
	notify := opts.NotifyBinary
	if notify == "" {
		notify = DefaultNotifyBinary
	}
	return &Pipeline{
		client:       opts.Client,
		exporter:     opts.Exporter,
		notifyBinary: notify,
		logger:       opts.Logger,
		out:          opts.Out,
	}
}

// Request describes one installation.
type Request struct {
	Box    model.SelectedContainer
	Format model.PackageFormat
	Path   string // local package file

	// Binaries and Apps replace the corresponding half of the scanned
	// manifest when non-empty.
	Binaries []string
	Apps     []string

	NoExport    bool
	Interactive bool
}

// Result describes a successful installation.
type Result struct {
	InBoxPath string
	Manifest  model.PackageManifest
	Step      Step // the attempt that succeeded
	Report    export.Report
}

// Run executes the install pipeline for req.
//
// Transfer, integrity and installation failures are fatal. Export
// problems are reported in Result.Report and never fail the install.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	box := req.Box.Name

	// Step 1: Measure the local file before it leaves the host.
	info, err := os.Stat(req.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(model.ErrNotFound, "file does not exist: "+req.Path), "path", req.Path)
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to stat package"), "path", req.Path)
	}

	// Step 2: Stream the package into the container.
	fmt.Fprintf(p.out, "Copying package into box '%s'...\n", box)
	inBox, err := p.client.CopyIn(ctx, box, req.Path)
	if err != nil {
		return nil, err
	}

	// Step 3: Verify nothing was lost in the pipe.
	remote, err := p.client.RemoteSize(ctx, box, inBox)
	if err != nil {
		return nil, zerr.Wrap(model.ErrIntegrityMismatch, "cannot verify transferred size: "+err.Error())
	}
	if remote != info.Size() {
		return nil, zerr.With(zerr.With(
			zerr.Wrap(model.ErrIntegrityMismatch,
				fmt.Sprintf("transferred package size mismatch: local %d bytes, container %d bytes", info.Size(), remote)),
			"local_size", info.Size()),
			"remote_size", remote)
	}

	// Step 4: Pre-scan the package for exportable artifacts.
	manifest := p.prescan(ctx, box, req.Format, inBox).Override(req.Binaries, req.Apps)

	// Step 5: Install through the escalation plan.
	fmt.Fprintf(p.out, "Installing inside box '%s'...\n", box)
	step, err := p.execute(ctx, box, Plan(BuildInstallCommand(req.Format, inBox), req.Interactive))
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(p.out, "Install completed.")

	result := &Result{InBoxPath: inBox, Manifest: manifest, Step: step}

	// Step 6: Export and notify.
	if req.NoExport {
		fmt.Fprintln(p.out, "--no-export: skipping export stage")
		return result, nil
	}
	result.Report = p.exporter.Export(ctx, box, manifest)
	p.notify(ctx, "Installed in "+box,
		fmt.Sprintf("Exported %d bins, %d apps", len(manifest.Binaries), len(manifest.DesktopEntries)))

	return result, nil
}

// prescan lists the package contents. A failure yields an empty manifest
// since the install itself may still succeed.
func (p *Pipeline) prescan(ctx context.Context, box string, format model.PackageFormat, inBox string) model.PackageManifest {
	res, err := p.client.EnterCapture(ctx, box, pkgformat.ContentsCommand(format, inBox), false)
	if err != nil {
		p.logger.Warn("could not list package contents", "box", box, "error", err)
		return model.PackageManifest{}
	}
	return pkgformat.ParseFileList(format, res.Stdout)
}

// execute runs steps in order until one succeeds. When all fail, every
// step is re-run capturing its output for the returned diagnostic.
func (p *Pipeline) execute(ctx context.Context, box string, steps []Step) (Step, error) {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Step{}, err
		}
		p.logger.Debug("install attempt", "box", box, "privilege", s.Privilege)
		err := p.client.Enter(ctx, box, s.Script, s.AsRoot())
		if err == nil {
			return s, nil
		}
		p.logger.Debug("install attempt failed", "privilege", s.Privilege, "error", err)
	}

	var diag strings.Builder
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return Step{}, err
		}
		res, _ := p.client.EnterCapture(ctx, box, s.Script, s.AsRoot())
		fmt.Fprintf(&diag, "--- %s attempt (exit %d) ---\n", s.Privilege, res.ExitCode)
		if out := res.Combined(); out != "" {
			diag.WriteString(out)
			diag.WriteString("\n")
		}
	}

	return Step{}, zerr.With(zerr.Wrap(model.ErrInstallFailure,
		"installation command failed inside container '"+box+"':\n"+strings.TrimRight(diag.String(), "\n")),
		"box", box)
}

// notify sends a best-effort desktop notification.
func (p *Pipeline) notify(ctx context.Context, title, body string) {
	_, err := p.client.Runner().Run(ctx, shell.Request{
		Name:    p.notifyBinary,
		Args:    []string{title, body},
		Capture: true,
	})
	if err != nil {
		p.logger.Debug("notification not sent", "error", err)
	}
}

// ScanInstalled rebuilds the manifest of an installed package from its
// file list inside the container.
func (p *Pipeline) ScanInstalled(ctx context.Context, box model.SelectedContainer, pkg string) (model.PackageManifest, error) {
	res, err := p.client.EnterCapture(ctx, box.Name, pkgformat.InstalledFilesCommand(box.Family, pkg), false)
	if err != nil {
		msg := "failed to list files of package '" + pkg + "'"
		if out := res.Combined(); out != "" {
			msg += ": " + out
		}
		return model.PackageManifest{}, zerr.With(zerr.Wrap(err, msg), "box", box.Name)
	}
	return pkgformat.ParseInstalledFiles(res.Stdout), nil
}

// ExportInstalled re-exports an installed package. Non-empty bins or apps
// replace the scanned lists. A dry run prints the would-be exports.
func (p *Pipeline) ExportInstalled(ctx context.Context, box model.SelectedContainer, pkg string, bins, apps []string, dryRun bool) (export.Report, error) {
	manifest, err := p.ScanInstalled(ctx, box, pkg)
	if err != nil {
		return export.Report{}, err
	}
	manifest = manifest.Override(bins, apps)

	if dryRun {
		fmt.Fprintf(p.out, "--dry-run: would export bins=%v, apps=%v\n", manifest.Binaries, manifest.DesktopEntries)
		return export.Report{}, nil
	}
	return p.exporter.Export(ctx, box.Name, manifest), nil
}

// Uninstall removes the exports of pkg and then the package itself,
// running the package manager as the container's root identity.
// Unexport problems are logged; a failing package manager is returned as
// model.ErrInstallFailure.
func (p *Pipeline) Uninstall(ctx context.Context, box model.SelectedContainer, pkg string, dryRun bool) error {
	manifest, err := p.ScanInstalled(ctx, box, pkg)
	if err != nil {
		p.logger.Warn("could not list installed files; exports are left in place", "package", pkg, "error", err)
	}
	if !manifest.IsEmpty() {
		fmt.Fprintf(p.out, "Removing exports for package '%s'...\n", pkg)
		if !dryRun {
			p.exporter.Unexport(ctx, box.Name, manifest)
		}
	}

	cmd := BuildUninstallCommand(box.Family, pkg)
	if dryRun {
		fmt.Fprintf(p.out, "--dry-run: would run inside '%s': %s\n", box.Name, cmd)
		return nil
	}

	if err := p.client.Enter(ctx, box.Name, cmd, true); err != nil {
		fmt.Fprintln(p.out, "Uninstall command reported failure.")
		return zerr.With(zerr.Wrap(model.ErrInstallFailure, "uninstall of '"+pkg+"' failed inside container '"+box.Name+"'"), "box", box.Name)
	}
	fmt.Fprintln(p.out, "Uninstall completed.")
	return nil
}
