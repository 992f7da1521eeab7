package install

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

func TestBuildInstallCommand(t *testing.T) {
	tests := []struct {
		name   string
		format model.PackageFormat
		path   string
		want   string
	}{
		{
			name:   "deb",
			format: model.FormatDeb,
			path:   "/tmp/pkgbridge/app.deb",
			want: "set -e; if command -v apt-get >/dev/null; then apt-get -y update && apt-get -y install /tmp/pkgbridge/app.deb; " +
				"else dpkg -i /tmp/pkgbridge/app.deb; fi",
		},
		{
			name:   "rpm",
			format: model.FormatRpm,
			path:   "/tmp/pkgbridge/app.rpm",
			want: "set -e; if command -v dnf >/dev/null; then dnf -y install /tmp/pkgbridge/app.rpm; " +
				"elif command -v zypper >/dev/null; then zypper --non-interactive install /tmp/pkgbridge/app.rpm; " +
				"else rpm -i /tmp/pkgbridge/app.rpm; fi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildInstallCommand(tt.format, tt.path))
		})
	}
}

// TestBuildInstallCommand_QuotesPath verifies that unusual paths cannot
// break out of the script.
func TestBuildInstallCommand_QuotesPath(t *testing.T) {
	cmd := BuildInstallCommand(model.FormatRpm, "/tmp/a b;rm -rf ~.rpm")
	assert.Contains(t, cmd, "dnf -y install '/tmp/a b;rm -rf ~.rpm'")
}

func TestBuildUninstallCommand(t *testing.T) {
	tests := []struct {
		family model.Family
		want   []string
	}{
		{model.FamilyDebian, []string{"apt-get -y remove htop", "dpkg -r htop"}},
		{model.FamilyFedora, []string{"dnf -y remove htop", "rpm -e htop"}},
		{model.FamilyOpenSuse, []string{"zypper --non-interactive rm htop", "rpm -e htop"}},
		{model.FamilyArch, []string{"pacman -R --noconfirm htop", "echo 'pacman not found' >&2; exit 1"}},
	}

	for _, tt := range tests {
		t.Run(tt.family.String(), func(t *testing.T) {
			cmd := BuildUninstallCommand(tt.family, "htop")
			assert.Contains(t, cmd, "set -e; ")
			for _, want := range tt.want {
				assert.Contains(t, cmd, want)
			}
		})
	}
}

// stubPath returns a PATH holding only sh and the given tool stubs, so
// scripts see exactly the package managers a test wants.
func stubPath(t *testing.T, stubs map[string]string) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	require.NoError(t, os.Symlink(sh, filepath.Join(dir, "sh")))
	for name, body := range stubs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!"+sh+"\n"+body+"\n"), 0o755))
	}
	return dir
}

// runScript runs script with sh under the given PATH.
func runScript(t *testing.T, path, script string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(filepath.Join(path, "sh"), "-c", script)
	cmd.Env = []string{"PATH=" + path}
	return cmd.CombinedOutput()
}

// TestBuildInstallCommand_DpkgFailureIsFatal verifies that a failing
// dpkg on a box without apt-get fails the script, directly and through
// the unprivileged escalation chain.
func TestBuildInstallCommand_DpkgFailureIsFatal(t *testing.T) {
	path := stubPath(t, map[string]string{
		"dpkg": "echo 'dpkg: error: requested operation requires superuser privilege' >&2; exit 2",
	})
	cmd := BuildInstallCommand(model.FormatDeb, "/tmp/pkgbridge/app.deb")

	out, err := runScript(t, path, cmd)
	require.Error(t, err, string(out))
	assert.Contains(t, string(out), "superuser privilege")

	out, err = runScript(t, path, UserScript(cmd, true))
	require.Error(t, err, string(out))
}

// TestBuildInstallCommand_DpkgSuccess verifies the no-apt-get branch.
func TestBuildInstallCommand_DpkgSuccess(t *testing.T) {
	path := stubPath(t, map[string]string{"dpkg": `echo "dpkg $*"`})

	out, err := runScript(t, path, BuildInstallCommand(model.FormatDeb, "/tmp/pkgbridge/app.deb"))
	require.NoError(t, err, string(out))
	assert.Equal(t, "dpkg -i /tmp/pkgbridge/app.deb\n", string(out))
}
