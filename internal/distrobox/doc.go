// Package distrobox wraps the distrobox CLI for the pkgbridge commands.
//
// This package handles:
//   - Container discovery ("distrobox list"), preferring JSON output and
//     falling back to the tabular text formats of older releases
//   - Family classification by reading /etc/os-release inside a container
//   - Container creation, command execution inside a container (optionally
//     as the container's root identity), and streaming file transfer
//
// Design decisions:
//   - We shell out to distrobox rather than talking to podman/docker
//     directly, because distrobox owns the container conventions (home
//     mounts, user mapping, --root handling) that installs depend on.
//   - Discovery never fails. A missing tool or a non-zero exit yields an
//     empty list, since having no containers is a valid state.
//   - Every call goes through a shell.Runner so the package is testable
//     without a container runtime.
package distrobox
