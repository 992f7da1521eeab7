package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "PKGBRIDGE_"

// Settings is the persisted user configuration.
type Settings struct {
	// PMDefaults maps a family key to the container that the
	// package-manager shims for that family target.
	PMDefaults map[string]string `koanf:"pm_defaults"`

	// Tools names the external programs pkgbridge drives.
	Tools Tools `koanf:"tools"`
}

// Tools holds the external command names. Each may be a bare name looked
// up on PATH or an absolute path.
type Tools struct {
	Distrobox string `koanf:"distrobox"`
	Export    string `koanf:"export"`
	Notify    string `koanf:"notify"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		PMDefaults: map[string]string{},
		Tools: Tools{
			Distrobox: "distrobox",
			Export:    "distrobox-export",
			Notify:    "notify-send",
		},
	}
}

// SetDefault records box as the shim target for family.
func (s *Settings) SetDefault(family model.Family, box string) {
	if s.PMDefaults == nil {
		s.PMDefaults = map[string]string{}
	}
	s.PMDefaults[family.Key()] = box
}

// DefaultFor returns the shim target for family, if one is set.
func (s Settings) DefaultFor(family model.Family) (string, bool) {
	box, ok := s.PMDefaults[family.Key()]
	return box, ok && box != ""
}

// DefaultFamilies returns the families with a recorded default, sorted.
func (s Settings) DefaultFamilies() []string {
	keys := make([]string, 0, len(s.PMDefaults))
	for k, v := range s.PMDefaults {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// LoadSettings merges defaults, the TOML file at path (if it exists) and
// PKGBRIDGE_* environment overrides. On a read or parse failure it
// returns the defaults together with an ErrConfigIO error so callers can
// warn and carry on.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Default(), ioError("failed to load default settings", "", err)
	}

	// 2. Settings file
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return Default(), ioError("failed to parse settings file", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Default(), ioError("failed to read settings file", path, err)
		}
	}

	// 3. Environment: PKGBRIDGE_TOOLS_NOTIFY -> tools.notify,
	// PKGBRIDGE_PM_DEFAULTS_DEBIAN -> pm_defaults.debian
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKeyTransform,
	}), nil); err != nil {
		return Default(), ioError("failed to load environment settings", "", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Default(), ioError("failed to decode settings", "", err)
	}
	if s.PMDefaults == nil {
		s.PMDefaults = map[string]string{}
	}
	return s, nil
}

// envKeyTransform maps PKGBRIDGE_* variables onto settings keys. Variables
// outside the tools and pm_defaults sections (PKGBRIDGE_CONTAINER, for
// one) are ignored.
func envKeyTransform(k, v string) (string, any) {
	s := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	for _, section := range []string{"tools", "pm_defaults"} {
		if rest, ok := strings.CutPrefix(s, section+"_"); ok && rest != "" {
			return section + "." + rest, v
		}
	}
	return "", nil
}

// SaveSettings writes s to path as TOML, creating the parent directory.
func SaveSettings(path string, s Settings) error {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(s, "koanf"), nil); err != nil {
		return ioError("failed to encode settings", "", err)
	}
	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return ioError("failed to encode settings", "", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioError("failed to create directory for", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ioError("failed to write", path, err)
	}
	return nil
}

// ioError wraps err under ErrConfigIO, naming path in the message when
// one is given.
func ioError(msg, path string, err error) error {
	if path == "" {
		return zerr.Wrap(model.ErrConfigIO, msg+": "+err.Error())
	}
	return zerr.With(zerr.Wrap(model.ErrConfigIO, msg+" "+path+": "+err.Error()), "path", path)
}
