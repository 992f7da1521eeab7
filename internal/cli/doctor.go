package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/shinji-kodama/pkgbridge/internal/config"
	"github.com/shinji-kodama/pkgbridge/internal/docker"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// NewDoctorCommand creates the "doctor" command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the host for distrobox, a container runtime and export directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), application)
		},
	}
}

// doctorProbe abstracts the host checks so the report can be tested.
type doctorProbe struct {
	lookPath shell.LookPathFunc
	getenv   func(string) string
	writable func(dir string) bool
	ping     func(ctx context.Context) (host string, err error)
}

func runDoctor(ctx context.Context, a *app) error {
	writeDoctorReport(ctx, a.out, a.paths, doctorProbe{
		lookPath: a.lookPath,
		getenv:   a.getenv,
		writable: dirWritable,
		ping:     pingEngine,
	})
	return nil
}

func writeDoctorReport(ctx context.Context, w io.Writer, paths config.Paths, p doctorProbe) {
	found := func(name string) (string, bool) {
		path, err := p.lookPath(name)
		return path, err == nil
	}

	fmt.Fprintln(w, headingStyle.Render("pkgbridge doctor:"))

	if path, ok := found("distrobox"); ok {
		fmt.Fprintf(w, "- distrobox: found at %s\n", path)
	} else {
		fmt.Fprintf(w, "- distrobox: %s\n", warnStyle.Render("NOT FOUND (install distrobox for full functionality)"))
	}

	_, podman := found("podman")
	_, dockerCLI := found("docker")
	fmt.Fprintf(w, "- container runtime: podman: %s, docker: %s\n", yesNo(podman), yesNo(dockerCLI))

	if host, err := p.ping(ctx); err == nil {
		fmt.Fprintf(w, "- container engine API: reachable (%s at %s)\n", docker.RuntimeForHost(host), host)
	} else {
		fmt.Fprintf(w, "- container engine API: unreachable (%v)\n", err)
	}

	fmt.Fprintf(w, "- bin dir: %s\n", paths.BinDir)
	fmt.Fprintf(w, "- applications dir: %s\n", paths.AppsDir)
	fmt.Fprintf(w, "- bin dir writable: %s\n", yesNo(p.writable(paths.BinDir)))
	fmt.Fprintf(w, "- applications dir writable: %s\n", yesNo(p.writable(paths.AppsDir)))
	fmt.Fprintf(w, "- bin dir on PATH: %s\n", yesNo(pathContains(p.getenv("PATH"), paths.BinDir)))

	if path, ok := found("distrobox-export"); ok {
		fmt.Fprintf(w, "- distrobox-export: found at %s\n", path)
	} else {
		fmt.Fprintf(w, "- distrobox-export: %s\n", warnStyle.Render("NOT FOUND (install distrobox-export for host integration)"))
	}

	_, xdgMime := found("xdg-mime")
	fmt.Fprintf(w, "- xdg-mime present: %s\n", yesNo(xdgMime))
	_, updateDB := found("update-desktop-database")
	fmt.Fprintf(w, "- update-desktop-database present: %s\n", yesNo(updateDB))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// dirWritable reports whether dir, or the closest existing ancestor that
// it would be created under, is writable by the current user.
func dirWritable(dir string) bool {
	for d := filepath.Clean(dir); ; d = filepath.Dir(d) {
		_, err := os.Stat(d)
		if err == nil {
			return unix.Access(d, unix.W_OK) == nil
		}
		if !errors.Is(err, fs.ErrNotExist) || d == filepath.Dir(d) {
			return false
		}
	}
}

// pathContains reports whether dir is one of the PATH entries.
func pathContains(pathEnv, dir string) bool {
	want := filepath.Clean(dir)
	for _, entry := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if entry != "" && filepath.Clean(entry) == want {
			return true
		}
	}
	return false
}

func pingEngine(ctx context.Context) (string, error) {
	c, err := docker.NewClient()
	if err != nil {
		return "", err
	}
	defer func() { _ = c.Close() }()
	if err := c.Ping(ctx); err != nil {
		return "", err
	}
	return c.Host(), nil
}
