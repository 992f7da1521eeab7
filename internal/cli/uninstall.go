package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewUninstallCommand creates the "uninstall" command.
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall PKG",
		Short: "Remove a package from a box together with its exports",
		Long: `Remove the host exports of a package and then uninstall it from the
box as the container's root user. --container is required.

Examples:
  pkgbridge uninstall ripgrep --container debian-stable
  pkgbridge uninstall code --container fedora --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUninstall(cmd.Context(), application, opts, args[0])
		},
	}
}

func runUninstall(ctx context.Context, a *app, o globalOptions, pkg string) error {
	box, err := requireContainer(ctx, a, o, "uninstall")
	if err != nil {
		return err
	}
	if err := a.pipeline().Uninstall(ctx, box, pkg, o.dryRun); err != nil {
		return commandError("uninstall failed", err)
	}
	return nil
}
