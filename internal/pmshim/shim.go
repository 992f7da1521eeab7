package pmshim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// Managers lists the package-manager commands wrapped for each family.
var Managers = map[model.Family][]string{
	model.FamilyDebian:   {"apt", "apt-get"},
	model.FamilyFedora:   {"dnf"},
	model.FamilyOpenSuse: {"zypper"},
	model.FamilyArch:     {"pacman"},
}

// Action tells what Generate did for one wrapper.
type Action string

const (
	// ActionWritten means the wrapper was written under the manager's name.
	ActionWritten Action = "written"

	// ActionSuffixed means the host already has the manager, so the
	// wrapper was written as NAME-BOX.
	ActionSuffixed Action = "suffixed"

	// ActionAlsoSuffixed means BinDir/NAME already existed and NAME-BOX
	// was added next to it.
	ActionAlsoSuffixed Action = "also-suffixed"

	// ActionSkipped means every candidate name was taken.
	ActionSkipped Action = "skipped"
)

// Request configures Generate.
type Request struct {
	// BinDir receives the wrappers.
	BinDir string

	// Defaults maps family keys to container names.
	Defaults map[string]string

	// LookPath resolves host commands. Defaults to nothing being found.
	LookPath shell.LookPathFunc

	// Self is the pkgbridge command the wrappers call back into.
	Self string

	// Distrobox is the distrobox command the wrappers use.
	Distrobox string
}

// Result describes one manager wrapper.
type Result struct {
	Family  model.Family
	Box     string
	Manager string
	Name    string
	Path    string
	Action  Action
}

// Generate writes wrappers for every family with a default container.
// Unknown family keys are skipped. Families are handled in a fixed order.
func Generate(req Request) ([]Result, error) {
	if req.Self == "" {
		req.Self = "pkgbridge"
	}
	if req.Distrobox == "" {
		req.Distrobox = "distrobox"
	}
	if err := os.MkdirAll(req.BinDir, 0o755); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create bin directory"), "path", req.BinDir)
	}

	var results []Result
	for _, family := range model.AllFamilies {
		box := req.Defaults[family.Key()]
		if box == "" {
			continue
		}
		for _, manager := range Managers[family] {
			res, err := generateOne(req, family, box, manager)
			if err != nil {
				return results, err
			}
			results = append(results, res)
		}
	}
	return results, nil
}

func generateOne(req Request, family model.Family, box, manager string) (Result, error) {
	res := Result{Family: family, Box: box, Manager: manager}
	suffixed := manager + "-" + Sanitize(box)

	pick := func(name string, action Action) (Result, error) {
		res.Name = name
		res.Path = filepath.Join(req.BinDir, name)
		res.Action = action
		if action == ActionSkipped {
			return res, nil
		}
		return res, write(res.Path, Script(req.Self, req.Distrobox, box, family, manager))
	}

	switch {
	case hostHas(req.LookPath, manager, req.BinDir):
		if exists(filepath.Join(req.BinDir, suffixed)) {
			return pick(suffixed, ActionSkipped)
		}
		return pick(suffixed, ActionSuffixed)
	case exists(filepath.Join(req.BinDir, manager)):
		if exists(filepath.Join(req.BinDir, suffixed)) {
			return pick(suffixed, ActionSkipped)
		}
		return pick(suffixed, ActionAlsoSuffixed)
	default:
		return pick(manager, ActionWritten)
	}
}

// Script returns the wrapper body for manager inside box.
func Script(self, distrobox, box string, family model.Family, manager string) string {
	self, distrobox = shell.Quote(self), shell.Quote(distrobox)
	var b strings.Builder
	fmt.Fprintf(&b, "#!/usr/bin/env sh\nset -e\nbox=%s\nfam=%s\n", shell.Quote(box), shell.Quote(family.Key()))
	fmt.Fprintf(&b, "%s pm snapshot --family \"$fam\" --container \"$box\" >/dev/null 2>&1 || true\n", self)
	b.WriteString("status=0\n")
	fmt.Fprintf(&b, "if %[1]s enter --root -n \"$box\" -- true >/dev/null 2>&1; then\n", distrobox)
	fmt.Fprintf(&b, "  %[1]s enter --root -n \"$box\" -- %[2]s \"$@\" || status=$?\n", distrobox, manager)
	fmt.Fprintf(&b, "elif %[1]s enter -n \"$box\" -- command -v sudo >/dev/null 2>&1; then\n", distrobox)
	fmt.Fprintf(&b, "  %[1]s enter -n \"$box\" -- sudo %[2]s \"$@\" || status=$?\n", distrobox, manager)
	fmt.Fprintf(&b, "elif %[1]s enter -n \"$box\" -- command -v doas >/dev/null 2>&1; then\n", distrobox)
	fmt.Fprintf(&b, "  %[1]s enter -n \"$box\" -- doas %[2]s \"$@\" || status=$?\n", distrobox, manager)
	b.WriteString("else\n")
	fmt.Fprintf(&b, "  %[1]s enter -n \"$box\" -- %[2]s \"$@\" || status=$?\n", distrobox, manager)
	b.WriteString("fi\n")
	fmt.Fprintf(&b, "%s pm post-transaction --family \"$fam\" --container \"$box\" >/dev/null 2>&1 || true\n", self)
	b.WriteString("exit $status\n")
	return b.String()
}

// Sanitize replaces every character outside [A-Za-z0-9_-] with '-'.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

// hostHas reports whether command resolves to something outside binDir.
func hostHas(lookPath shell.LookPathFunc, command, binDir string) bool {
	if lookPath == nil {
		return false
	}
	found, err := lookPath(command)
	if err != nil {
		return false
	}
	return !within(resolve(found), resolve(binDir))
}

func resolve(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return filepath.Clean(p)
}

func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return !errors.Is(err, fs.ErrNotExist)
}

func write(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write shim"), "path", path)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to set permissions"), "path", path)
	}
	return nil
}
