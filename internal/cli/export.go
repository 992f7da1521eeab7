package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// NewExportCommand creates the "export" command.
func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export PKG",
		Short: "Re-export binaries and desktop entries of an installed package",
		Long: `Re-export the binaries and desktop entries of a package that is
already installed in a box. --container is required.

Examples:
  pkgbridge export ripgrep --container debian-stable
  pkgbridge export code --container fedora --app code.desktop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), application, opts, args[0])
		},
	}
}

func runExport(ctx context.Context, a *app, o globalOptions, pkg string) error {
	box, err := requireContainer(ctx, a, o, "export")
	if err != nil {
		return err
	}

	report, err := a.pipeline().ExportInstalled(ctx, box, pkg, o.bins, o.apps, o.dryRun)
	if err != nil {
		return commandError("export failed", err)
	}
	for _, w := range report.Warnings {
		fmt.Fprintln(a.out, warnStyle.Render("Warning: "+w))
	}
	return nil
}

// requireContainer resolves the mandatory container of export, uninstall
// and the pm hooks, and classifies it. A --family that disagrees with the
// classification is an error.
func requireContainer(ctx context.Context, a *app, o globalOptions, command string) (model.SelectedContainer, error) {
	name := a.containerName(o)
	if name == "" {
		return model.SelectedContainer{}, model.NewCLIError(model.ExitGeneralError, "--container is required for "+command)
	}

	var want model.Family
	if o.family != "" {
		family, err := model.ParseFamily(o.family)
		if err != nil {
			return model.SelectedContainer{}, model.WrapCLIError(model.ExitGeneralError, "invalid --family", err)
		}
		want = family
	}

	family, err := a.distrobox().Classify(ctx, name)
	if err != nil {
		return model.SelectedContainer{}, commandError("cannot classify '"+name+"'", err)
	}
	if want != "" && want != family {
		err := zerr.With(zerr.With(zerr.Wrap(model.ErrFamilyMismatch,
			"container '"+name+"' is "+family.String()+", not "+want.String()),
			"requested", want.String()), "classified", family.String())
		return model.SelectedContainer{}, commandError("family mismatch", err)
	}
	return model.SelectedContainer{Name: name, Family: family}, nil
}
