package pkgformat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// TestParseFileList_Deb verifies extraction from "dpkg -c" output,
// including directory rows, links and nested paths.
func TestParseFileList_Deb(t *testing.T) {
	output := `drwxr-xr-x root/root         0 2024-05-01 10:00 ./
drwxr-xr-x root/root         0 2024-05-01 10:00 ./usr/
drwxr-xr-x root/root         0 2024-05-01 10:00 ./usr/bin/
-rwxr-xr-x root/root    123456 2024-05-01 10:00 ./usr/bin/foo
lrwxrwxrwx root/root         0 2024-05-01 10:00 ./usr/bin/foo-cli -> foo
hrwxr-xr-x root/root         0 2024-05-01 10:00 ./usr/bin/foo-tool link to ./usr/bin/foo
-rwxr-xr-x root/root       100 2024-05-01 10:00 ./usr/bin/helpers/nested
-rw-r--r-- root/root       300 2024-05-01 10:00 ./usr/share/applications/foo.desktop
-rw-r--r-- root/root       300 2024-05-01 10:00 ./usr/share/applications/kde/foo-kde.desktop
-rw-r--r-- root/root       300 2024-05-01 10:00 ./usr/share/applications/mimeinfo.cache
-rw-r--r-- root/root       300 2024-05-01 10:00 ./usr/share/doc/foo/copyright
`

	m := ParseFileList(model.FormatDeb, output)

	assert.Equal(t, []string{"foo", "foo-cli", "foo-tool"}, m.Binaries)
	assert.Equal(t, []string{"foo.desktop", "kde/foo-kde.desktop"}, m.DesktopEntries)
}

// TestParseFileList_Rpm verifies extraction from "rpm -qlp" output.
func TestParseFileList_Rpm(t *testing.T) {
	output := `/usr/bin/bar
/usr/bin/bar
/usr/lib64/libbar.so.1
/usr/share/applications/bar.desktop
/usr/sbin/bard
`

	m := ParseFileList(model.FormatRpm, output)

	assert.Equal(t, []string{"bar"}, m.Binaries)
	assert.Equal(t, []string{"bar.desktop"}, m.DesktopEntries)
}

// TestParseFileList_Empty verifies that noise produces an empty manifest.
func TestParseFileList_Empty(t *testing.T) {
	assert.True(t, ParseFileList(model.FormatRpm, "(contains no files)\n").IsEmpty())
	assert.True(t, ParseFileList(model.FormatDeb, "").IsEmpty())
}

// TestParseInstalledFiles verifies extraction from "dpkg -L" style output.
func TestParseInstalledFiles(t *testing.T) {
	output := "/.\n/usr\n/usr/bin\n/usr/bin/baz\n/usr/share/applications/baz.desktop\n"

	m := ParseInstalledFiles(output)
	assert.Equal(t, []string{"baz"}, m.Binaries)
	assert.Equal(t, []string{"baz.desktop"}, m.DesktopEntries)
}

// TestCommands verifies the listing commands per format and family.
func TestCommands(t *testing.T) {
	assert.Equal(t, "dpkg -c /tmp/pkgbridge/foo.deb || true", ContentsCommand(model.FormatDeb, "/tmp/pkgbridge/foo.deb"))
	assert.Equal(t, "rpm -qlp '/tmp/pkgbridge/a b.rpm' || true", ContentsCommand(model.FormatRpm, "/tmp/pkgbridge/a b.rpm"))

	assert.Equal(t, "dpkg -L foo", InstalledFilesCommand(model.FamilyDebian, "foo"))
	assert.Equal(t, "rpm -ql foo", InstalledFilesCommand(model.FamilyFedora, "foo"))
	assert.Equal(t, "rpm -ql foo", InstalledFilesCommand(model.FamilyOpenSuse, "foo"))
	assert.Equal(t, "pacman -Qlq foo", InstalledFilesCommand(model.FamilyArch, "foo"))
}

func TestTarListingPath(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"regular file", "-rwxr-xr-x root/root 12 2024-05-01 10:00 ./usr/bin/a", "./usr/bin/a"},
		{"symlink", "lrwxrwxrwx root/root 0 2024-05-01 10:00 ./usr/bin/b -> a", "./usr/bin/b"},
		{"hardlink", "hrwxr-xr-x root/root 0 2024-05-01 10:00 ./usr/bin/b link to ./usr/bin/a", "./usr/bin/b"},
		{"space in name", "-rw-r--r-- root/root 1 2024-05-01 10:00 ./usr/share/a b.txt", "./usr/share/a b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tarListingPath(tt.line))
		})
	}
}
