// Package shell provides the process-execution capability used by every
// pkgbridge component that talks to external tools (distrobox,
// distrobox-export, notify-send).
//
// All subprocess calls go through the Runner interface so that engines can
// be tested against scripted behaviour (see the mocks subpackage) instead of
// a real container runtime. The package also provides POSIX quoting for
// values spliced into "sh -lc" scripts.
//
// Design decisions:
//   - Execution is synchronous. A call blocks until the child exits and no
//     timeout is applied; callers that want cancellation pass a context.
//   - Captured output is bounded per stream so that a noisy package manager
//     cannot exhaust memory while its output is kept for diagnostics.
package shell
