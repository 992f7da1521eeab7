// Package pmshim writes host-side package-manager wrappers.
//
// A wrapper named after a container's package manager (apt, dnf, ...)
// snapshots the container's inventory, runs the manager inside the
// container with the best privilege available, and then asks pkgbridge
// to export whatever the transaction added. Wrappers never shadow a
// package manager the host already has and never overwrite an existing
// file.
package pmshim
