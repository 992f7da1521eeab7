package pkgformat

import (
	"bufio"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

const (
	// binaryPattern matches files directly under the binaries directory.
	binaryPattern = "usr/bin/*"

	// desktopPattern matches desktop entries anywhere below the
	// applications directory.
	desktopPattern = "usr/share/applications/**/*.desktop"

	applicationsPrefix = "usr/share/applications/"
	binPrefix          = "usr/bin/"
)

// ContentsCommand returns the in-container script that lists the files
// contained in an uninstalled package file. Listing failures are
// tolerated so an unreadable archive yields an empty manifest rather
// than aborting the install.
func ContentsCommand(format model.PackageFormat, inBoxPath string) string {
	if format == model.FormatRpm {
		return shell.Join("rpm", "-qlp", inBoxPath) + " || true"
	}
	return shell.Join("dpkg", "-c", inBoxPath) + " || true"
}

// InstalledFilesCommand returns the in-container script that lists the
// files owned by an installed package.
func InstalledFilesCommand(family model.Family, pkg string) string {
	switch family {
	case model.FamilyDebian:
		return shell.Join("dpkg", "-L", pkg)
	case model.FamilyArch:
		return shell.Join("pacman", "-Qlq", pkg)
	default:
		return shell.Join("rpm", "-ql", pkg)
	}
}

// ParseFileList extracts a manifest from package listing output.
//
// Deb archive listings (dpkg -c) are tar-style lines whose path starts
// at the sixth column, optionally followed by " -> target" for symlinks
// or " link to target" for hardlinks.
// Every other listing is one path per line.
func ParseFileList(format model.PackageFormat, output string) model.PackageManifest {
	var bins, apps []string

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		path := line
		if format == model.FormatDeb {
			path = tarListingPath(line)
		}

		if name, ok := binaryName(path); ok {
			bins = append(bins, name)
		}
		if entry, ok := desktopEntry(path); ok {
			apps = append(apps, entry)
		}
	}

	return model.NewPackageManifest(bins, apps)
}

// ParseInstalledFiles extracts a manifest from an installed package's
// file list (dpkg -L, rpm -ql, pacman -Qlq), which is one path per line.
func ParseInstalledFiles(output string) model.PackageManifest {
	return ParseFileList(model.FormatRpm, output)
}

// tarListingPath returns the path column of a "dpkg -c" line. Symlink
// (" -> ") and hardlink (" link to ") targets are dropped.
func tarListingPath(line string) string {
	for _, sep := range []string{" -> ", " link to "} {
		if i := strings.Index(line, sep); i >= 0 {
			line = line[:i]
		}
	}
	fields := strings.Fields(line)
	if len(fields) >= 6 {
		return strings.Join(fields[5:], " ")
	}
	if len(fields) > 0 {
		return fields[len(fields)-1]
	}
	return ""
}

// normalize strips the "./" and "/" prefixes used by package listings.
func normalize(path string) string {
	path = strings.TrimPrefix(path, ".")
	return strings.TrimPrefix(path, "/")
}

func binaryName(path string) (string, bool) {
	path = normalize(path)
	if strings.HasSuffix(path, "/") {
		return "", false
	}
	ok, err := doublestar.Match(binaryPattern, path)
	if err != nil || !ok {
		return "", false
	}
	name := strings.TrimPrefix(path, binPrefix)
	return name, name != ""
}

func desktopEntry(path string) (string, bool) {
	path = normalize(path)
	ok, err := doublestar.Match(desktopPattern, path)
	if err != nil || !ok {
		return "", false
	}
	return strings.TrimPrefix(path, applicationsPrefix), true
}
