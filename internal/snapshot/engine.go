package snapshot

import (
	"context"

	"github.com/charmbracelet/log"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/export"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/pkgformat"
)

// Exporter publishes package artifacts. *export.Engine satisfies it.
type Exporter interface {
	Export(ctx context.Context, box string, m model.PackageManifest) export.Report
}

// Engine takes snapshots and runs post-transaction exports.
type Engine struct {
	client   *distrobox.Client
	store    Store
	exporter Exporter
	logger   *log.Logger
}

// NewEngine creates an Engine.
func NewEngine(client *distrobox.Client, store Store, exporter Exporter, logger *log.Logger) *Engine {
	return &Engine{client: client, store: store, exporter: exporter, logger: logger}
}

// inventory queries the live package list of box.
func (e *Engine) inventory(ctx context.Context, box string, family model.Family) ([]string, model.Snapshot, error) {
	res, err := e.client.EnterCapture(ctx, box, InventoryCommand(family), false)
	if err != nil {
		return nil, nil, zerr.With(zerr.Wrap(err, "failed to list installed packages"), "box", box)
	}
	lines, snap := ParseInventory(res.Stdout)
	return lines, snap, nil
}

// Take stores the current inventory of box, replacing any previous one.
func (e *Engine) Take(ctx context.Context, box string, family model.Family) error {
	lines, _, err := e.inventory(ctx, box, family)
	if err != nil {
		return err
	}
	e.logger.Debug("snapshot taken", "box", box, "packages", len(lines))
	return e.store.Save(box, lines)
}

// PostTransaction exports every package that is new or upgraded since the
// stored snapshot, then stores the current inventory. Per-package scan
// and export problems are logged; the snapshot is saved regardless.
func (e *Engine) PostTransaction(ctx context.Context, box string, family model.Family) (Changes, error) {
	prev, err := e.store.Load(box)
	if err != nil {
		e.logger.Warn("unreadable snapshot; treating every package as new", "box", box, "error", err)
		prev = model.Snapshot{}
	}

	lines, cur, err := e.inventory(ctx, box, family)
	if err != nil {
		return Changes{}, err
	}

	changes := Diff(prev, cur)
	if !changes.IsEmpty() {
		e.logger.Info("detected package changes", "box", box, "new", changes.New, "upgraded", changes.Upgraded)
	}

	for _, pkg := range changes.Packages() {
		res, err := e.client.EnterCapture(ctx, box, pkgformat.InstalledFilesCommand(family, pkg), false)
		if err != nil {
			e.logger.Warn("could not list package files", "box", box, "package", pkg, "error", err)
			continue
		}
		report := e.exporter.Export(ctx, box, pkgformat.ParseInstalledFiles(res.Stdout))
		for _, w := range report.Warnings {
			e.logger.Warn("export warning", "package", pkg, "warning", w)
		}
	}

	if err := e.store.Save(box, lines); err != nil {
		return changes, err
	}
	return changes, nil
}
