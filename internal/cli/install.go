package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pkgbridge/internal/install"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/pkgformat"
	"github.com/shinji-kodama/pkgbridge/internal/selector"
)

// NewInstallCommand creates the "install" command.
func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install FILE",
		Short: "Install a .deb or .rpm into a suitable box and export it",
		Long: `Install a native package into a matching Distrobox container.

The package format is detected from the file, a container of a matching
family is selected (or created with --create), and the package's binaries
and desktop entries are exported to the host afterwards.

Examples:
  pkgbridge install ./tool_1.0_amd64.deb
  pkgbridge install ./tool.rpm --container fedora
  pkgbridge install ./tool.deb --create --bin tool
  pkgbridge install ./tool.deb --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), application, opts, args[0])
		},
	}
}

// NewOpenCommand creates the "open" command, the entry point used by
// file-manager MIME associations. It behaves exactly like install.
func NewOpenCommand() *cobra.Command {
	cmd := NewInstallCommand()
	cmd.Use = "open FILE"
	cmd.Short = "Install a package opened from a file manager"
	cmd.Long = `Install a package opened from a file manager (MIME double-click).

This is the same as "pkgbridge install FILE".`
	return cmd
}

// runInstall detects, selects, plans and, unless --dry-run, installs.
func runInstall(ctx context.Context, a *app, o globalOptions, path string) error {
	// Step 1: The file must exist before anything else happens.
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.WrapCLIError(model.ExitNotFound, "file does not exist: "+path, nil)
		}
		return commandError("cannot read "+path, err)
	}

	// Step 2: Detect the package format.
	format, err := pkgformat.Detect(path)
	if err != nil {
		return commandError("cannot detect package format", err)
	}
	fmt.Fprintf(a.out, "Detected format: %s\n", format)

	// Step 3: Select or create a container.
	req := selector.Request{
		Format:        format,
		Container:     a.containerName(o),
		AllowCreate:   o.create,
		ImageOverride: o.createImage,
		DryRun:        o.dryRun,
	}
	if o.family != "" {
		family, err := model.ParseFamily(o.family)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "invalid --family", err)
		}
		req.Family = family
	}
	box, err := a.selector().Select(ctx, req)
	if err != nil {
		return commandError("no box selected", err)
	}
	VerboseLog("selected %s (%s)", box.Name, box.Family)

	// Step 4: Report the plan.
	fmt.Fprintf(a.out, "Selected box: %s (family: %s)\n", box.Name, box.Family)
	fmt.Fprintf(a.out, "Plan: install %s inside '%s'\n", path, box.Name)
	if o.dryRun {
		fmt.Fprintln(a.out, "--dry-run: stopping before any installation/export work.")
		return nil
	}

	// Step 5: Transfer, install and export.
	result, err := a.pipeline().Run(ctx, install.Request{
		Box:         box,
		Format:      format,
		Path:        path,
		Binaries:    o.bins,
		Apps:        o.apps,
		NoExport:    o.noExport,
		Interactive: a.interactive,
	})
	if err != nil {
		return commandError("installation failed", err)
	}
	for _, w := range result.Report.Warnings {
		fmt.Fprintln(a.out, warnStyle.Render("Warning: "+w))
	}
	return nil
}
