package model

import (
	"fmt"
	"sort"
	"strings"
)

// Family represents the broad distribution lineage of a container.
// The family decides which package-manager commands are used inside it.
//
// A Family is always derived by classifying a running container; it is
// only ever persisted as a string key in the defaults record.
type Family string

const (
	// FamilyDebian covers Debian, Ubuntu and their derivatives.
	FamilyDebian Family = "debian"

	// FamilyFedora covers Fedora, RHEL and CentOS.
	FamilyFedora Family = "fedora"

	// FamilyOpenSuse covers openSUSE and SLES.
	FamilyOpenSuse Family = "opensuse"

	// FamilyArch covers Arch Linux, Manjaro and EndeavourOS.
	FamilyArch Family = "arch"
)

// AllFamilies lists every supported family in a fixed order.
var AllFamilies = []Family{FamilyDebian, FamilyFedora, FamilyOpenSuse, FamilyArch}

// String returns the string representation of Family.
// This method satisfies the fmt.Stringer interface.
func (f Family) String() string {
	return string(f)
}

// Key returns the key used for this family in the defaults record.
func (f Family) Key() string {
	return string(f)
}

// IsValid checks whether the Family value is one of the predefined families.
func (f Family) IsValid() bool {
	switch f {
	case FamilyDebian, FamilyFedora, FamilyOpenSuse, FamilyArch:
		return true
	default:
		return false
	}
}

// ParseFamily converts a string to a Family.
// Returns an error if the string does not match any valid family.
func ParseFamily(s string) (Family, error) {
	family := Family(strings.ToLower(strings.TrimSpace(s)))
	if !family.IsValid() {
		return "", fmt.Errorf("invalid family: %q (valid: debian, fedora, opensuse, arch)", s)
	}
	return family, nil
}

// PackageFormat represents the binary format of a native package file.
type PackageFormat string

const (
	// FormatDeb is a Debian package (an ar archive).
	FormatDeb PackageFormat = "deb"

	// FormatRpm is an RPM package.
	FormatRpm PackageFormat = "rpm"
)

// String returns the string representation of PackageFormat.
func (p PackageFormat) String() string {
	return string(p)
}

// IsValid checks whether the PackageFormat value is one of the
// predefined formats.
func (p PackageFormat) IsValid() bool {
	return p == FormatDeb || p == FormatRpm
}

// ParsePackageFormat converts a string to a PackageFormat.
func ParsePackageFormat(s string) (PackageFormat, error) {
	format := PackageFormat(strings.ToLower(s))
	if !format.IsValid() {
		return "", fmt.Errorf("invalid package format: %q (valid: deb, rpm)", s)
	}
	return format, nil
}

// CandidateFamilies returns the families able to install this format,
// in preference order. When a container has to be created the first
// family in the list wins.
func (p PackageFormat) CandidateFamilies() []Family {
	switch p {
	case FormatDeb:
		return []Family{FamilyDebian}
	case FormatRpm:
		return []Family{FamilyFedora, FamilyOpenSuse}
	default:
		return nil
	}
}

// RuntimeUnknown is reported when the container engine behind a box
// could not be determined.
const RuntimeUnknown = "unknown"

// ContainerRecord describes one container discovered through the
// distrobox listing tool. Records are re-fetched on every invocation
// and never cached.
type ContainerRecord struct {
	// Name is the distrobox container name used with "distrobox enter -n".
	Name string `json:"name"`

	// Image is the base image reference. Empty when the listing did not
	// report one.
	Image string `json:"image,omitempty"`

	// Runtime is the container engine ("podman", "docker") or RuntimeUnknown.
	Runtime string `json:"runtime"`
}

// SelectedContainer is the single resolved target of one command
// invocation. Its family reflects the classification made during
// selection and must not be reused across invocations.
type SelectedContainer struct {
	Name   string `json:"name"`
	Family Family `json:"family"`
}

// PackageManifest lists the exportable artifacts of a package: binary
// names found directly under usr/bin and desktop entries found under
// usr/share/applications. Both lists are sorted and deduplicated.
type PackageManifest struct {
	Binaries       []string `json:"binaries"`
	DesktopEntries []string `json:"desktopEntries"`
}

// NewPackageManifest builds a manifest from raw name lists, dropping
// empty names and duplicates and sorting the result for determinism.
func NewPackageManifest(binaries, desktopEntries []string) PackageManifest {
	return PackageManifest{
		Binaries:       sortedUnique(binaries),
		DesktopEntries: sortedUnique(desktopEntries),
	}
}

// IsEmpty reports whether the manifest has nothing to export.
func (m PackageManifest) IsEmpty() bool {
	return len(m.Binaries) == 0 && len(m.DesktopEntries) == 0
}

// Override replaces each half of the manifest with the caller-supplied
// list when that list is non-empty. Explicit lists never merge with the
// scanned result.
func (m PackageManifest) Override(binaries, desktopEntries []string) PackageManifest {
	out := m
	if len(binaries) > 0 {
		out.Binaries = sortedUnique(binaries)
	}
	if len(desktopEntries) > 0 {
		out.DesktopEntries = sortedUnique(desktopEntries)
	}
	return out
}

// Snapshot maps installed package names to their version strings for a
// single container.
type Snapshot map[string]string

func sortedUnique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
