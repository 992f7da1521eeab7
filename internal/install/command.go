package install

import (
	"fmt"

	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// BuildInstallCommand returns the in-container script installing the
// package file at path.
//
// Deb prefers apt-get, which resolves dependencies from the container's
// repositories. Without apt-get, dpkg installs the file on its own and
// its exit status is the script's. Rpm prefers dnf, then zypper, then rpm.
func BuildInstallCommand(format model.PackageFormat, path string) string {
	p := shell.Quote(path)
	if format == model.FormatRpm {
		return fmt.Sprintf("set -e; if command -v dnf >/dev/null; then dnf -y install %s; "+
			"elif command -v zypper >/dev/null; then zypper --non-interactive install %s; "+
			"else rpm -i %s; fi", p, p, p)
	}
	return fmt.Sprintf("set -e; if command -v apt-get >/dev/null; then apt-get -y update && apt-get -y install %s; "+
		"else dpkg -i %s; fi", p, p)
}

// BuildUninstallCommand returns the in-container script removing the
// installed package pkg.
func BuildUninstallCommand(family model.Family, pkg string) string {
	p := shell.Quote(pkg)
	switch family {
	case model.FamilyFedora:
		return fmt.Sprintf("set -e; if command -v dnf >/dev/null; then dnf -y remove %s; else rpm -e %s; fi", p, p)
	case model.FamilyOpenSuse:
		return fmt.Sprintf("set -e; if command -v zypper >/dev/null; then zypper --non-interactive rm %s; else rpm -e %s; fi", p, p)
	case model.FamilyArch:
		return fmt.Sprintf("set -e; if command -v pacman >/dev/null; then pacman -R --noconfirm %s; "+
			"else echo 'pacman not found' >&2; exit 1; fi", p)
	default:
		return fmt.Sprintf("set -e; if command -v apt-get >/dev/null; then apt-get -y remove %s; else dpkg -r %s; fi", p, p)
	}
}
