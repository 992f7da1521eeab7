// Package cli implements the cobra-based CLI commands for pkgbridge.
//
// Each subcommand (install, export, uninstall, list, doctor, pm) is
// defined in its own file within this package. This file defines the
// root command that owns the global flags and builds the shared
// application wiring before any subcommand runs.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// annotationNoOnboarding marks commands that must never trigger the
// first-run prompt. The package-manager shims call them with output
// discarded.
const annotationNoOnboarding = "pkgbridge/no-onboarding"

// globalOptions holds the values of the persistent flags. Every
// subcommand sees the same set.
type globalOptions struct {
	json        bool
	verbose     bool
	logLevel    string
	dryRun      bool
	container   string
	family      string
	create      bool
	createImage string
	noExport    bool
	bins        []string
	apps        []string
}

var (
	// opts is bound to the root command's persistent flags.
	opts globalOptions

	// application is built in the root command's PersistentPreRunE and
	// shared by the subcommand that runs afterwards.
	application *app
)

// Version, Commit and Date are injected from the main package at build
// time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command with every subcommand
// registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgbridge",
		Short: "Install .deb/.rpm packages into Distrobox containers",
		Long: `pkgbridge installs native .deb and .rpm packages into a matching
Distrobox container and exports the resulting command-line tools and
desktop applications to the host.

A container is chosen by classifying the existing boxes; one can be
created on demand with --create.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.OutOrStdout(), cmd.InOrStdin(), os.Getenv, opts)
			if err != nil {
				return err
			}
			application = a
			if cmd.Annotations[annotationNoOnboarding] == "" && !opts.dryRun {
				maybeFirstRun(cmd.Context(), a)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.json, "json", false, "Output in JSON format")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output (same as --log-level debug)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "Plan only; do not change containers, exports or settings")
	pf.StringVarP(&opts.container, "container", "c", "", "Use this box (default: $PKGBRIDGE_CONTAINER)")
	pf.StringVar(&opts.family, "family", "", "Preferred family: debian, fedora, opensuse, arch")
	pf.BoolVar(&opts.create, "create", false, "Create a recommended box when none matches")
	pf.StringVar(&opts.createImage, "create-image", "", "Base image used with --create")
	pf.BoolVar(&opts.noExport, "no-export", false, "Skip exporting after install")
	pf.StringSliceVar(&opts.bins, "bin", nil, "Export only these binaries (comma-separated or repeated)")
	pf.StringSliceVar(&opts.apps, "app", nil, "Export only these desktop entries (comma-separated or repeated)")

	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewOpenCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewUninstallCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewDoctorCommand())
	rootCmd.AddCommand(NewPMCommand())

	return rootCmd
}

// Execute runs rootCmd and returns the process exit code. Errors are
// printed to stderr in text or JSON form depending on --json.
func Execute(ctx context.Context, rootCmd *cobra.Command) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return int(model.ExitSuccess)
	}

	cliErr := toCLIError(err)
	printError(os.Stderr, cliErr.Message, cliErr.Err)
	return int(cliErr.Code)
}

// toCLIError converts any command error into a CLIError carrying the
// exit code of its taxonomy sentinel.
func toCLIError(err error) *model.CLIError {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	if errors.Is(err, context.Canceled) {
		return model.NewCLIError(model.ExitUserCancelled, "interrupted")
	}
	return model.NewCLIError(model.ExitCodeFor(err), err.Error())
}

// printError writes an error message in the format selected by --json.
func printError(w io.Writer, message string, underlying error) {
	if opts.json {
		errObj := map[string]any{
			"error": map[string]any{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog emits a debug line through the application logger.
func VerboseLog(format string, args ...any) {
	if application != nil {
		application.logger.Debugf(format, args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return opts.json
}

// commandError wraps err for the CLI boundary, keeping the exit code of
// its sentinel.
func commandError(message string, err error) error {
	return model.AsCLIError(message, err)
}
