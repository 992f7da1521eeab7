// Package export publishes binaries and desktop entries installed inside a
// container to the host, and removes them again.
//
// Exports go through the distrobox-export helper, which exists in two
// generations with different calling conventions:
//
//	host side:      distrobox-export --container BOX --bin NAME
//	container side: distrobox enter -n BOX -- distrobox-export --bin /usr/bin/NAME
//
// ProbeHelper picks one convention per Engine by looking for "--container"
// in the helper's --help output. The rest of the package only sees the
// Helper interface.
//
// Collision rules:
//   - A host file is never overwritten unless it is a pkgbridge shim or
//     rewritten desktop entry for the same container.
//   - A colliding binary gets a shim named NAME-BOX.
//   - A colliding desktop entry is copied out of the container with its
//     Exec= lines wrapped in "distrobox enter" and saved as BASE.BOX.desktop.
//   - A failed helper export falls back to a shim named NAME and is
//     reported as a warning.
//
// Export and unexport are not transactional. Each artifact is handled on
// its own and failures are reported as warnings in the Report.
package export
