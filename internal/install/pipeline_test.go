package install

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/export"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
	"github.com/shinji-kodama/pkgbridge/internal/shell/mocks"
)

// fakeExporter records the manifests it receives.
type fakeExporter struct {
	exported   []model.PackageManifest
	unexported []model.PackageManifest
}

func (e *fakeExporter) Export(_ context.Context, _ string, m model.PackageManifest) export.Report {
	e.exported = append(e.exported, m)
	return export.Report{Exported: append(slices.Clone(m.Binaries), m.DesktopEntries...)}
}

func (e *fakeExporter) Unexport(_ context.Context, _ string, m model.PackageManifest) {
	e.unexported = append(e.unexported, m)
}

// handler scripts the process behaviour for one test.
type handler func(req shell.Request) (shell.Result, error)

type pipelineFixture struct {
	pipeline *Pipeline
	exporter *fakeExporter
	out      *bytes.Buffer
	requests []shell.Request
}

func newPipelineFixture(t *testing.T, h handler) *pipelineFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	f := &pipelineFixture{exporter: &fakeExporter{}, out: &bytes.Buffer{}}

	runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req shell.Request) (shell.Result, error) {
			f.requests = append(f.requests, req)
			return h(req)
		}).
		AnyTimes()

	logger := log.New(io.Discard)
	f.pipeline = NewPipeline(Options{
		Client:   distrobox.NewClient(runner, "distrobox", logger),
		Exporter: f.exporter,
		Logger:   logger,
		Out:      f.out,
	})
	return f
}

// script returns the shell script of a "distrobox enter ... sh -lc" request.
func script(req shell.Request) string {
	if len(req.Args) == 0 {
		return ""
	}
	return req.Args[len(req.Args)-1]
}

func isRoot(req shell.Request) bool {
	return slices.Contains(req.Args, "--root")
}

func isInstall(req shell.Request) bool {
	return strings.Contains(script(req), "apt-get -y install")
}

const dpkgContents = `drwxr-xr-x root/root         0 2024-01-01 12:00 ./
drwxr-xr-x root/root         0 2024-01-01 12:00 ./usr/bin/
-rwxr-xr-x root/root     12345 2024-01-01 12:00 ./usr/bin/foo
-rw-r--r-- root/root       321 2024-01-01 12:00 ./usr/share/applications/foo.desktop
-rw-r--r-- root/root       100 2024-01-01 12:00 ./usr/share/doc/foo/copyright
`

// baseHandler answers the transfer, size and listing steps for a file of
// size bytes, and delegates install attempts to install.
func baseHandler(size string, install handler) handler {
	return func(req shell.Request) (shell.Result, error) {
		s := script(req)
		switch {
		case req.Name == "notify-send":
			return shell.Result{}, nil
		case strings.Contains(s, "cat > "):
			return shell.Result{}, nil
		case strings.HasPrefix(s, "stat -c"):
			return shell.Result{Stdout: size + "\n"}, nil
		case strings.HasPrefix(s, "dpkg -c"):
			return shell.Result{Stdout: dpkgContents}, nil
		case isInstall(req):
			return install(req)
		}
		return shell.Result{ExitCode: 127}, errors.New("unexpected request: " + req.String())
	}
}

func writePackage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foo_1.0_amd64.deb")
	require.NoError(t, os.WriteFile(path, []byte("!<arch>\n"), 0o644))
	return path
}

func debRequest(path string) Request {
	return Request{
		Box:    model.SelectedContainer{Name: "deb", Family: model.FamilyDebian},
		Format: model.FormatDeb,
		Path:   path,
	}
}

// TestRun_Success walks the whole non-interactive pipeline.
func TestRun_Success(t *testing.T) {
	f := newPipelineFixture(t, baseHandler("8", func(req shell.Request) (shell.Result, error) {
		return shell.Result{}, nil
	}))

	res, err := f.pipeline.Run(context.Background(), debRequest(writePackage(t)))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pkgbridge/foo_1.0_amd64.deb", res.InBoxPath)
	assert.Equal(t, PrivilegeRoot, res.Step.Privilege)
	assert.Equal(t, model.NewPackageManifest([]string{"foo"}, []string{"foo.desktop"}), res.Manifest)
	assert.Equal(t, []model.PackageManifest{res.Manifest}, f.exporter.exported)

	last := f.requests[len(f.requests)-1]
	assert.Equal(t, shell.Request{Name: "notify-send", Args: []string{"Installed in deb", "Exported 1 bins, 1 apps"}, Capture: true}, last)
	assert.Contains(t, f.out.String(), "Install completed.")
}

// TestRun_IntegrityMismatch verifies that a truncated transfer stops the
// pipeline before installation.
func TestRun_IntegrityMismatch(t *testing.T) {
	f := newPipelineFixture(t, baseHandler("3", func(shell.Request) (shell.Result, error) {
		t.Fatal("install must not run after an integrity failure")
		return shell.Result{}, nil
	}))

	_, err := f.pipeline.Run(context.Background(), debRequest(writePackage(t)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrIntegrityMismatch))
	assert.Contains(t, err.Error(), "local 8 bytes, container 3 bytes")
	assert.Empty(t, f.exporter.exported)
}

// TestRun_MissingFile verifies the not-found error for a vanished file.
func TestRun_MissingFile(t *testing.T) {
	f := newPipelineFixture(t, baseHandler("0", nil))

	_, err := f.pipeline.Run(context.Background(), debRequest(filepath.Join(t.TempDir(), "gone.deb")))
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Empty(t, f.requests)
}

// TestRun_Escalation verifies the attempt order and fallback.
func TestRun_Escalation(t *testing.T) {
	tests := []struct {
		name        string
		interactive bool
		failRoot    bool
		failUser    bool
		want        []bool // root flag of each streamed attempt
		succeeded   Privilege
	}{
		{"non-interactive root succeeds", false, false, false, []bool{true}, PrivilegeRoot},
		{"non-interactive falls back to user", false, true, false, []bool{true, false}, PrivilegeUser},
		{"interactive user succeeds", true, false, false, []bool{false}, PrivilegeUser},
		{"interactive falls back to root", true, false, true, []bool{false, true}, PrivilegeRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t, baseHandler("8", func(req shell.Request) (shell.Result, error) {
				if (isRoot(req) && tt.failRoot) || (!isRoot(req) && tt.failUser) {
					return shell.Result{ExitCode: 100}, errors.New("exit 100")
				}
				return shell.Result{}, nil
			}))

			req := debRequest(writePackage(t))
			req.Interactive = tt.interactive
			res, err := f.pipeline.Run(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.succeeded, res.Step.Privilege)

			var attempts []bool
			for _, r := range f.requests {
				if isInstall(r) {
					assert.False(t, r.Capture, "attempts stream to the terminal")
					attempts = append(attempts, isRoot(r))
				}
			}
			assert.Equal(t, tt.want, attempts)
		})
	}
}

// TestRun_AllAttemptsFail verifies the captured re-run and combined
// diagnostic.
func TestRun_AllAttemptsFail(t *testing.T) {
	f := newPipelineFixture(t, baseHandler("8", func(req shell.Request) (shell.Result, error) {
		res := shell.Result{ExitCode: 100}
		if req.Capture {
			if isRoot(req) {
				res.Stderr = "Error: rootful podman unavailable"
			} else {
				res.Stderr = "E: Unable to locate package foo"
			}
		}
		return res, errors.New("exit 100")
	}))

	_, err := f.pipeline.Run(context.Background(), debRequest(writePackage(t)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInstallFailure))

	msg := err.Error()
	assert.Contains(t, msg, "--- root attempt (exit 100) ---\nError: rootful podman unavailable")
	assert.Contains(t, msg, "--- user attempt (exit 100) ---\nE: Unable to locate package foo")
	assert.Empty(t, f.exporter.exported)

	var streamed, captured int
	for _, r := range f.requests {
		if isInstall(r) {
			if r.Capture {
				captured++
			} else {
				streamed++
			}
		}
	}
	assert.Equal(t, 2, streamed)
	assert.Equal(t, 2, captured)
}

// TestRun_OverridesAndNoExport verifies manifest overrides and the
// export switch.
func TestRun_OverridesAndNoExport(t *testing.T) {
	ok := func(shell.Request) (shell.Result, error) { return shell.Result{}, nil }

	t.Run("overrides replace scan", func(t *testing.T) {
		f := newPipelineFixture(t, baseHandler("8", ok))
		req := debRequest(writePackage(t))
		req.Binaries = []string{"bar", "baz"}

		res, err := f.pipeline.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"bar", "baz"}, res.Manifest.Binaries)
		assert.Equal(t, []string{"foo.desktop"}, res.Manifest.DesktopEntries)
	})

	t.Run("no export", func(t *testing.T) {
		f := newPipelineFixture(t, baseHandler("8", ok))
		req := debRequest(writePackage(t))
		req.NoExport = true

		_, err := f.pipeline.Run(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, f.exporter.exported)
		for _, r := range f.requests {
			assert.NotEqual(t, "notify-send", r.Name)
		}
		assert.Contains(t, f.out.String(), "--no-export: skipping export stage")
	})
}

// TestRun_NotifyFailureIgnored verifies the notification is best effort.
func TestRun_NotifyFailureIgnored(t *testing.T) {
	ok := baseHandler("8", func(shell.Request) (shell.Result, error) { return shell.Result{}, nil })
	f := newPipelineFixture(t, func(req shell.Request) (shell.Result, error) {
		if req.Name == "notify-send" {
			return shell.Result{ExitCode: -1}, errors.New("not found")
		}
		return ok(req)
	})

	_, err := f.pipeline.Run(context.Background(), debRequest(writePackage(t)))
	assert.NoError(t, err)
}

const installedFiles = "/.\n/usr\n/usr/bin\n/usr/bin/htop\n/usr/share/applications/htop.desktop\n"

// TestUninstall verifies unexport followed by a root uninstall.
func TestUninstall(t *testing.T) {
	f := newPipelineFixture(t, func(req shell.Request) (shell.Result, error) {
		s := script(req)
		switch {
		case strings.HasPrefix(s, "dpkg -L"):
			return shell.Result{Stdout: installedFiles}, nil
		case strings.Contains(s, "apt-get -y remove htop"):
			assert.True(t, isRoot(req))
			return shell.Result{}, nil
		}
		return shell.Result{}, errors.New("unexpected")
	})

	box := model.SelectedContainer{Name: "deb", Family: model.FamilyDebian}
	require.NoError(t, f.pipeline.Uninstall(context.Background(), box, "htop", false))

	assert.Equal(t, []model.PackageManifest{model.NewPackageManifest([]string{"htop"}, []string{"htop.desktop"})}, f.exporter.unexported)
	assert.Contains(t, f.out.String(), "Removing exports for package 'htop'...")
	assert.Contains(t, f.out.String(), "Uninstall completed.")
}

// TestUninstall_Failure verifies that a failing package manager is an
// install failure while unexport still happened.
func TestUninstall_Failure(t *testing.T) {
	f := newPipelineFixture(t, func(req shell.Request) (shell.Result, error) {
		if strings.HasPrefix(script(req), "rpm -ql") {
			return shell.Result{Stdout: "/usr/bin/htop\n"}, nil
		}
		return shell.Result{ExitCode: 1}, errors.New("exit 1")
	})

	box := model.SelectedContainer{Name: "fed", Family: model.FamilyFedora}
	err := f.pipeline.Uninstall(context.Background(), box, "htop", false)
	assert.True(t, errors.Is(err, model.ErrInstallFailure))
	assert.Len(t, f.exporter.unexported, 1)
}

// TestUninstall_DryRun verifies that nothing is mutated.
func TestUninstall_DryRun(t *testing.T) {
	f := newPipelineFixture(t, func(req shell.Request) (shell.Result, error) {
		if strings.HasPrefix(script(req), "pacman -Qlq") {
			return shell.Result{Stdout: "/usr/bin/htop\n"}, nil
		}
		t.Fatalf("unexpected request in dry run: %s", req.String())
		return shell.Result{}, nil
	})

	box := model.SelectedContainer{Name: "arch", Family: model.FamilyArch}
	require.NoError(t, f.pipeline.Uninstall(context.Background(), box, "htop", true))
	assert.Empty(t, f.exporter.unexported)
	assert.Contains(t, f.out.String(), "--dry-run: would run inside 'arch': set -e; if command -v pacman")
}

// TestExportInstalled covers re-export with and without dry run.
func TestExportInstalled(t *testing.T) {
	listing := func(req shell.Request) (shell.Result, error) {
		if strings.HasPrefix(script(req), "dpkg -L") {
			return shell.Result{Stdout: installedFiles}, nil
		}
		return shell.Result{}, errors.New("unexpected")
	}
	box := model.SelectedContainer{Name: "deb", Family: model.FamilyDebian}

	t.Run("exports scanned manifest with app override", func(t *testing.T) {
		f := newPipelineFixture(t, listing)

		report, err := f.pipeline.ExportInstalled(context.Background(), box, "htop", nil, []string{"other.desktop"}, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"htop", "other.desktop"}, report.Exported)
	})

	t.Run("dry run", func(t *testing.T) {
		f := newPipelineFixture(t, listing)

		_, err := f.pipeline.ExportInstalled(context.Background(), box, "htop", nil, nil, true)
		require.NoError(t, err)
		assert.Empty(t, f.exporter.exported)
		assert.Contains(t, f.out.String(), "--dry-run: would export bins=[htop], apps=[htop.desktop]")
	})

	t.Run("package not installed", func(t *testing.T) {
		f := newPipelineFixture(t, func(shell.Request) (shell.Result, error) {
			return shell.Result{Stderr: "dpkg-query: package 'nope' is not installed", ExitCode: 1}, errors.New("exit 1")
		})

		_, err := f.pipeline.ExportInstalled(context.Background(), box, "nope", nil, nil, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not installed")
	})
}

// TestRun_DpkgFailureTriesRootAndFails runs the generated install
// scripts against a box without apt-get whose dpkg always fails. The
// unprivileged attempt must not count as success: root is tried next
// and the install fails.
func TestRun_DpkgFailureTriesRootAndFails(t *testing.T) {
	path := stubPath(t, map[string]string{"dpkg": "echo 'dpkg: error processing archive' >&2; exit 2"})

	f := newPipelineFixture(t, baseHandler("8", func(req shell.Request) (shell.Result, error) {
		out, err := runScript(t, path, script(req))
		if err != nil {
			return shell.Result{Stderr: string(out), ExitCode: 2}, err
		}
		return shell.Result{Stdout: string(out)}, nil
	}))

	req := debRequest(writePackage(t))
	req.Interactive = true
	_, err := f.pipeline.Run(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInstallFailure))
	assert.Contains(t, err.Error(), "dpkg: error processing archive")
	assert.NotContains(t, f.out.String(), "Install completed.")
	assert.Empty(t, f.exporter.exported)

	var attempts []bool
	for _, r := range f.requests {
		if isInstall(r) && !r.Capture {
			attempts = append(attempts, isRoot(r))
		}
	}
	assert.Equal(t, []bool{false, true}, attempts)
}
