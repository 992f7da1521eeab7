package pkgformat

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// sniffSize is how much of the file is read for the fallback text scan.
const sniffSize = 2048

var (
	// rpmLead is the RPM lead signature.
	rpmLead = []byte{0xED, 0xAB, 0xEE, 0xDB}

	// arMagic starts every ar archive, and therefore every .deb.
	arMagic = []byte("!<arch>\n")

	// debianBinary is the first member of a .deb archive.
	debianBinary = []byte("debian-binary")
)

// Detect classifies the package file at path.
//
// Priority order:
//  1. Extension, case-insensitive: ".deb" or ".rpm".
//  2. Magic bytes in the first 8 bytes: RPM lead or ar signature.
//  3. The literal "debian-binary" anywhere in the first 2 KiB.
//
// Returns an error wrapping model.ErrNotFound when the file does not exist
// and model.ErrFormatUnknown when no rule matches.
func Detect(path string) (model.PackageFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(zerr.Wrap(model.ErrNotFound, "package file does not exist"), "path", path)
		}
		return "", zerr.With(zerr.Wrap(err, "failed to open package file"), "path", path)
	}
	defer f.Close()

	// Step 1: extension.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".deb":
		return model.FormatDeb, nil
	case ".rpm":
		return model.FormatRpm, nil
	}

	// Step 2 and 3 share one read. io.ReadFull tolerates short files.
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", zerr.With(zerr.Wrap(err, "failed to read package file"), "path", path)
	}

	if format, ok := DetectBytes(head[:n]); ok {
		return format, nil
	}

	return "", zerr.With(zerr.Wrap(model.ErrFormatUnknown, "not a .deb or .rpm package"), "path", path)
}

// DetectBytes applies the content rules (magic bytes, then the text scan)
// to the leading bytes of a file.
func DetectBytes(head []byte) (model.PackageFormat, bool) {
	magic := head
	if len(magic) > 8 {
		magic = magic[:8]
	}
	switch {
	case bytes.HasPrefix(magic, rpmLead):
		return model.FormatRpm, true
	case bytes.HasPrefix(magic, arMagic):
		return model.FormatDeb, true
	}

	scan := head
	if len(scan) > sniffSize {
		scan = scan[:sniffSize]
	}
	if bytes.Contains(scan, debianBinary) {
		return model.FormatDeb, true
	}
	return "", false
}
