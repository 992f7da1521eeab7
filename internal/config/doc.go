// Package config resolves pkgbridge's on-disk locations and loads the
// user settings and the first-run state.
//
// Settings live in a TOML file and are layered with koanf: built-in
// defaults first, then the file, then PKGBRIDGE_* environment variables.
// The state file is a small YAML record that only tracks whether
// onboarding has already run. Neither is cached; callers load a record,
// change it and save it back explicitly.
package config
