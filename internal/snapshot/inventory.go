package snapshot

import (
	"sort"
	"strings"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// Inventory commands print one "name<TAB>version" line per installed
// package.
const (
	debInventory    = `dpkg-query -W -f='${Package}\t${Version}\n'`
	rpmInventory    = `rpm -qa --qf '%{NAME}\t%{VERSION}-%{RELEASE}\n'`
	pacmanInventory = `pacman -Q | awk '{print $1 "\t" $2}'`
)

// InventoryCommand returns the in-container script listing installed
// packages for family.
func InventoryCommand(family model.Family) string {
	switch family {
	case model.FamilyDebian:
		return debInventory
	case model.FamilyArch:
		return pacmanInventory
	default:
		return rpmInventory
	}
}

// ParseInventory splits inventory output into its "name<TAB>version"
// lines (kept verbatim for storage) and the name to version mapping.
// Lines without a tab or without a name are noise and are dropped.
func ParseInventory(output string) ([]string, model.Snapshot) {
	var lines []string
	snap := make(model.Snapshot)
	for _, l := range strings.Split(output, "\n") {
		l = strings.TrimSpace(l)
		name, version, ok := strings.Cut(l, "\t")
		if !ok || name == "" {
			continue
		}
		lines = append(lines, l)
		snap[name] = version
	}
	return lines, snap
}

// Changes lists the packages that differ between two snapshots. Both
// lists are sorted.
type Changes struct {
	New      []string `json:"new"`
	Upgraded []string `json:"upgraded"`
}

// IsEmpty reports whether nothing changed.
func (c Changes) IsEmpty() bool {
	return len(c.New) == 0 && len(c.Upgraded) == 0
}

// Packages returns the new and upgraded packages together.
func (c Changes) Packages() []string {
	out := make([]string, 0, len(c.New)+len(c.Upgraded))
	out = append(out, c.New...)
	return append(out, c.Upgraded...)
}

// Diff classifies every package in cur: absent from prev is new, present
// with a different version is upgraded. Packages missing from cur are
// ignored.
func Diff(prev, cur model.Snapshot) Changes {
	var c Changes
	for name, version := range cur {
		old, ok := prev[name]
		switch {
		case !ok:
			c.New = append(c.New, name)
		case old != version:
			c.Upgraded = append(c.Upgraded, name)
		}
	}
	sort.Strings(c.New)
	sort.Strings(c.Upgraded)
	return c
}
