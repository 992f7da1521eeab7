package export

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// ShimContent returns the script that re-enters box and runs command
// with the caller's arguments.
func ShimContent(box, command string) string {
	return fmt.Sprintf("#!/usr/bin/env sh\nexec distrobox enter -n %s -- %s \"$@\"\n", shell.Quote(box), shell.Quote(command))
}

// ShimName returns the collision-safe name NAME-BOX.
func ShimName(name, box string) string {
	return name + "-" + box
}

// ownership describes what currently occupies a host path.
type ownership int

const (
	pathAbsent  ownership = iota // nothing at the path
	pathOurs                     // identical pkgbridge content
	pathForeign                  // anything else
)

// inspect compares the file at path against want.
func inspect(path string, want []byte) ownership {
	got, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if _, lerr := os.Lstat(path); lerr == nil {
			// Dangling symlink: the name is taken.
			return pathForeign
		}
		return pathAbsent
	}
	if err != nil {
		return pathForeign
	}
	if bytes.Equal(got, want) {
		return pathOurs
	}
	return pathForeign
}

// writeShim writes an executable shim for command at dir/outName.
func writeShim(dir, outName, box, command string) (string, error) {
	path := filepath.Join(dir, outName)
	if err := writeFile(path, []byte(ShimContent(box, command)), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// writeFile creates the parent directory, writes data, and enforces perm
// even when the file already existed.
func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write file"), "path", path)
	}
	if err := os.Chmod(path, perm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to set permissions"), "path", path)
	}
	return nil
}
