// Package install runs package installation inside a container.
//
// The pipeline is linear:
//
//	transfer -> integrity check -> pre-scan -> execution -> export
//
// Execution follows an escalation Plan: an ordered list of Steps, each a
// script plus the privilege it runs with. Interactive sessions try the
// user step first so sudo prompts reach the human; non-interactive
// sessions start with the container's root identity. When every step
// fails, the steps are re-run capturing output and the combined
// diagnostics are returned as a single model.ErrInstallFailure.
//
// The package also builds the uninstall and re-export flows, which share
// the installed-file scan used to rebuild a PackageManifest.
package install
