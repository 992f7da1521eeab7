package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// State is the persisted onboarding record.
type State struct {
	FirstRunDone bool `yaml:"first_run_done"`
}

// LoadState reads the state file at path. A missing file is the zero
// State; a malformed one is the zero State plus an ErrConfigIO error.
func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, ioError("failed to read state file", path, err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, ioError("failed to parse state file", path, err)
	}
	return st, nil
}

// SaveState writes st to path, creating the parent directory.
func SaveState(path string, st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return ioError("failed to encode state", "", err)
	}
	return writeFile(path, data)
}
