// Package model defines the domain types and value objects for the
// pkgbridge CLI.
//
// This package contains pure data structures with no process or filesystem
// side effects. Containers, families, and package manifests are transient
// representations rebuilt from distrobox queries on every invocation; the
// only durable state (defaults, the first-run flag, and per-container
// snapshots) is owned by the config and snapshot packages.
//
// The package also defines exit codes (ExitCode), a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling,
// and the sentinel errors that make up the failure taxonomy.
package model
