package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// HostDirs are the host directories artifacts are exported into.
type HostDirs struct {
	BinDir  string
	AppsDir string
}

// Rename records an artifact exported under a collision-safe name.
type Rename struct {
	Original   string
	ExportedAs string
}

// Report summarizes one Export call.
type Report struct {
	// Exported lists artifacts published through the helper.
	Exported []string

	// Shims lists host paths of shims written or reused.
	Shims []string

	// Renamed lists artifacts exported under a different name because the
	// original name was taken on the host.
	Renamed []Rename

	// Warnings lists non-fatal per-artifact failures.
	Warnings []string
}

// Engine exports and unexports package manifests for containers.
type Engine struct {
	client *distrobox.Client
	dirs   HostDirs
	binary string
	helper Helper
	logger *log.Logger
	out    io.Writer
}

// NewEngine creates an Engine. The helper convention is probed on first
// use; SetHelper overrides it.
func NewEngine(client *distrobox.Client, dirs HostDirs, helperBinary string, logger *log.Logger, out io.Writer) *Engine {
	return &Engine{
		client: client,
		dirs:   dirs,
		binary: helperBinary,
		logger: logger,
		out:    out,
	}
}

// SetHelper fixes the calling convention instead of probing for it.
func (e *Engine) SetHelper(h Helper) {
	e.helper = h
}

// Helper returns the calling convention in use, probing once if needed.
func (e *Engine) Helper(ctx context.Context) Helper {
	if e.helper == nil {
		e.helper = ProbeHelper(ctx, e.client, e.binary, e.logger)
	}
	return e.helper
}

// Dirs returns the host export directories.
func (e *Engine) Dirs() HostDirs {
	return e.dirs
}

// Export publishes every binary and desktop entry of m for box.
// Failures never abort the batch; they are collected in the Report.
func (e *Engine) Export(ctx context.Context, box string, m model.PackageManifest) Report {
	var report Report

	if m.IsEmpty() {
		fmt.Fprintln(e.out, "No items detected to export. You can pass --bin or --app.")
		return report
	}

	for _, name := range m.Binaries {
		e.exportBin(ctx, box, name, &report)
	}
	for _, entry := range m.DesktopEntries {
		e.exportApp(ctx, box, entry, &report)
	}
	return report
}

func (e *Engine) exportBin(ctx context.Context, box, name string, report *Report) {
	target := filepath.Join(e.dirs.BinDir, name)
	shim := []byte(ShimContent(box, name))

	switch inspect(target, shim) {
	case pathOurs:
		// A fallback shim from an earlier run already serves this binary.
		report.Shims = append(report.Shims, target)
		fmt.Fprintf(e.out, "Already exported bin: %s\n", name)
		return
	case pathForeign:
		e.exportRenamedBin(box, name, report)
		return
	}

	err := e.Helper(ctx).ExportBin(ctx, box, name)
	if err == nil {
		report.Exported = append(report.Exported, name)
		fmt.Fprintf(e.out, "Exported bin: %s\n", name)
		return
	}
	e.logger.Debug("helper export failed", "bin", name, "error", err)

	// The helper may have left something behind before failing.
	if inspect(target, shim) == pathForeign {
		e.warn(report, fmt.Sprintf("distrobox-export failed for %s and %s is taken", name, target))
		return
	}
	written, err := writeShim(e.dirs.BinDir, name, box, name)
	if err != nil {
		e.warn(report, fmt.Sprintf("distrobox-export failed and shim for %s could not be written: %v", name, err))
		return
	}
	report.Shims = append(report.Shims, written)
	e.warn(report, "distrobox-export failed; wrote shim for "+name)
}

func (e *Engine) exportRenamedBin(box, name string, report *Report) {
	alt := ShimName(name, box)
	altPath := filepath.Join(e.dirs.BinDir, alt)

	if inspect(altPath, []byte(ShimContent(box, name))) == pathForeign {
		e.warn(report, fmt.Sprintf("name collision for '%s' and '%s' is taken by another file; skipped", name, alt))
		return
	}

	written, err := writeShim(e.dirs.BinDir, alt, box, name)
	if err != nil {
		e.warn(report, fmt.Sprintf("failed to write shim %s: %v", alt, err))
		return
	}
	report.Shims = append(report.Shims, written)
	report.Renamed = append(report.Renamed, Rename{Original: name, ExportedAs: alt})
	fmt.Fprintf(e.out, "Name collision for '%s'; exported as '%s'\n", name, alt)
}

func (e *Engine) exportApp(ctx context.Context, box, entry string, report *Report) {
	inBox := desktopPath(entry)
	base := path.Base(inBox)
	target := filepath.Join(e.dirs.AppsDir, base)

	if _, err := os.Lstat(target); err != nil {
		if err := e.Helper(ctx).ExportApp(ctx, box, inBox); err != nil {
			e.logger.Debug("helper export failed", "app", base, "error", err)
			e.warn(report, "failed exporting app "+base)
			return
		}
		report.Exported = append(report.Exported, base)
		fmt.Fprintf(e.out, "Exported app: %s\n", base)
		return
	}

	res, err := e.client.EnterCapture(ctx, box, shell.Join("cat", inBox), false)
	if err != nil {
		e.warn(report, fmt.Sprintf("app collision for '%s' and its content could not be read: %v", base, err))
		return
	}

	alt := DesktopAltName(base, box)
	altPath := filepath.Join(e.dirs.AppsDir, alt)
	content := []byte(RewriteDesktopExec(res.Stdout, box))

	if inspect(altPath, content) == pathForeign {
		e.warn(report, fmt.Sprintf("app collision for '%s' and '%s' is taken by another file; skipped", base, alt))
		return
	}
	if err := writeFile(altPath, content, 0o644); err != nil {
		e.warn(report, fmt.Sprintf("failed to write %s: %v", alt, err))
		return
	}
	report.Renamed = append(report.Renamed, Rename{Original: base, ExportedAs: alt})
	fmt.Fprintf(e.out, "App collision for '%s'; exported as '%s'\n", base, alt)
}

// Unexport removes the exports of m for box through the helper, and
// deletes pkgbridge shims and rewritten entries it can prove it wrote.
// Failures are logged and processing continues.
func (e *Engine) Unexport(ctx context.Context, box string, m model.PackageManifest) {
	helper := e.Helper(ctx)

	for _, name := range m.Binaries {
		if err := helper.UnexportBin(ctx, box, name); err != nil {
			e.logger.Warn("failed to unexport bin", "bin", name, "error", err)
		}
		shim := []byte(ShimContent(box, name))
		for _, candidate := range []string{name, ShimName(name, box)} {
			e.removeOwned(filepath.Join(e.dirs.BinDir, candidate), shim)
		}
	}

	for _, entry := range m.DesktopEntries {
		inBox := desktopPath(entry)
		if err := helper.UnexportApp(ctx, box, inBox); err != nil {
			e.logger.Warn("failed to unexport app", "app", path.Base(inBox), "error", err)
		}
		e.removeRewritten(filepath.Join(e.dirs.AppsDir, DesktopAltName(path.Base(inBox), box)), box)
	}
}

func (e *Engine) removeOwned(file string, content []byte) {
	if inspect(file, content) != pathOurs {
		return
	}
	if err := os.Remove(file); err != nil {
		e.logger.Warn("failed to remove shim", "path", file, "error", err)
		return
	}
	fmt.Fprintf(e.out, "Removed shim: %s\n", filepath.Base(file))
}

// removeRewritten deletes a BASE.BOX.desktop file whose Exec= lines all
// enter box, which is the shape RewriteDesktopExec produces.
func (e *Engine) removeRewritten(file, box string) {
	data, err := os.ReadFile(file)
	if err != nil {
		return
	}
	if RewriteDesktopExec(string(data), box) != string(data) || !entersBox(string(data), box) {
		return
	}
	if err := os.Remove(file); err != nil {
		e.logger.Warn("failed to remove desktop entry", "path", file, "error", err)
		return
	}
	fmt.Fprintf(e.out, "Removed app: %s\n", filepath.Base(file))
}

func (e *Engine) warn(report *Report, msg string) {
	report.Warnings = append(report.Warnings, msg)
	e.logger.Warn(msg)
}
