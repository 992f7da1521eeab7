package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/distrobox"
	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// Store keeps one snapshot file per container under Dir.
type Store struct {
	Dir string
}

// Path returns the snapshot file for box.
func (s Store) Path(box string) string {
	return filepath.Join(s.Dir, distrobox.SanitizeFileName(box)+".txt")
}

// Load reads the stored snapshot for box. A missing file is an empty
// snapshot.
func (s Store) Load(box string) (model.Snapshot, error) {
	data, err := os.ReadFile(s.Path(box))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Snapshot{}, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read snapshot"), "path", s.Path(box))
	}
	_, snap := ParseInventory(string(data))
	return snap, nil
}

// Save replaces the snapshot for box with lines.
func (s Store) Save(box string, lines []string) error {
	path := s.Path(box)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create snapshot directory"), "path", s.Dir)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write snapshot"), "path", path)
	}
	return nil
}
