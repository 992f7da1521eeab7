package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pkgbridge/internal/config"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/pmshim"
)

// NewPMCommand creates the "pm" command group.
func NewPMCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pm",
		Short: "Package-manager defaults, shims and transaction hooks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set-default FAMILY BOX",
		Short:     "Set the default box for a distribution family",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"debian", "fedora", "opensuse", "arch"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetDefault(application, opts, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show-defaults",
		Short: "Show the configured default boxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printDefaults(application.out, application.settings)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "generate-shims",
		Short: "Write package-manager shims for the configured defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerateShims(application, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:         "snapshot",
		Short:       "Record the installed packages of a box before a transaction",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoOnboarding: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd.Context(), application, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:         "post-transaction",
		Short:       "Export packages added or upgraded since the last snapshot",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoOnboarding: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPostTransaction(cmd.Context(), application, opts)
		},
	})

	return cmd
}

func runSetDefault(a *app, o globalOptions, familyArg, box string) error {
	family, err := model.ParseFamily(familyArg)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid family", err)
	}
	if o.dryRun {
		fmt.Fprintf(a.out, "--dry-run: would set default box for %s to '%s'\n", family, box)
		return nil
	}

	a.settings.SetDefault(family, box)
	if err := config.SaveSettings(a.paths.ConfigFile, a.settings); err != nil {
		return commandError("cannot save settings", err)
	}
	fmt.Fprintf(a.out, "Default box for %s set to '%s'\n", family, box)
	return nil
}

func printDefaults(w io.Writer, s config.Settings) {
	families := s.DefaultFamilies()

	if IsJSONOutput() {
		defaults := make(map[string]string, len(families))
		for _, f := range families {
			defaults[f] = s.PMDefaults[f]
		}
		data, _ := json.MarshalIndent(struct {
			Defaults map[string]string `json:"defaults"`
		}{Defaults: defaults}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if len(families) == 0 {
		fmt.Fprintln(w, "No defaults set.")
		return
	}
	for _, f := range families {
		fmt.Fprintf(w, "%s => %s\n", f, s.PMDefaults[f])
	}
}

func runGenerateShims(a *app, o globalOptions) error {
	families := a.settings.DefaultFamilies()
	if len(families) == 0 {
		fmt.Fprintln(a.out, "No defaults set; run 'pkgbridge pm set-default FAMILY BOX' first.")
		return nil
	}
	if o.dryRun {
		fmt.Fprintf(a.out, "--dry-run: would generate shims in %s for: %s\n", a.paths.BinDir, strings.Join(families, ", "))
		return nil
	}
	if err := generateShims(a); err != nil {
		return commandError("cannot generate shims", err)
	}
	return nil
}

// generateShims writes the shims and reports each outcome.
func generateShims(a *app) error {
	results, err := pmshim.Generate(pmshim.Request{
		BinDir:    a.paths.BinDir,
		Defaults:  a.settings.PMDefaults,
		LookPath:  a.lookPath,
		Self:      selfCommand(a),
		Distrobox: a.settings.Tools.Distrobox,
	})
	for _, r := range results {
		switch r.Action {
		case pmshim.ActionWritten:
			fmt.Fprintf(a.out, "Created shim '%s' for box '%s'\n", r.Name, r.Box)
		case pmshim.ActionSuffixed:
			fmt.Fprintf(a.out, "Host has '%s'; created '%s' instead\n", r.Manager, r.Name)
		case pmshim.ActionAlsoSuffixed:
			fmt.Fprintf(a.out, "'%s' exists; created '%s' as well\n", r.Manager, r.Name)
		case pmshim.ActionSkipped:
			a.logger.Debug("shim name taken; skipped", "name", r.Name)
		}
	}
	return err
}

// selfCommand is how shims call back into pkgbridge: by name when it is
// on PATH, else by this executable's path.
func selfCommand(a *app) string {
	if _, err := a.lookPath("pkgbridge"); err == nil {
		return "pkgbridge"
	}
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	return "pkgbridge"
}

func runSnapshot(ctx context.Context, a *app, o globalOptions) error {
	box, err := requireContainer(ctx, a, o, "pm snapshot")
	if err != nil {
		return err
	}
	if o.dryRun {
		fmt.Fprintf(a.out, "--dry-run: would snapshot packages of '%s'\n", box.Name)
		return nil
	}
	if err := a.snapshots().Take(ctx, box.Name, box.Family); err != nil {
		return commandError("snapshot failed", err)
	}
	return nil
}

func runPostTransaction(ctx context.Context, a *app, o globalOptions) error {
	box, err := requireContainer(ctx, a, o, "pm post-transaction")
	if err != nil {
		return err
	}
	if o.dryRun {
		fmt.Fprintf(a.out, "--dry-run: would export packages changed in '%s'\n", box.Name)
		return nil
	}

	changes, err := a.snapshots().PostTransaction(ctx, box.Name, box.Family)
	if err != nil {
		return commandError("post-transaction export failed", err)
	}

	if IsJSONOutput() {
		data, _ := json.MarshalIndent(changes, "", "  ")
		fmt.Fprintln(a.out, string(data))
		return nil
	}
	if changes.IsEmpty() {
		fmt.Fprintln(a.out, "No package changes detected.")
		return nil
	}
	fmt.Fprintf(a.out, "New: %s\n", strings.Join(changes.New, ", "))
	fmt.Fprintf(a.out, "Upgraded: %s\n", strings.Join(changes.Upgraded, ", "))
	return nil
}
