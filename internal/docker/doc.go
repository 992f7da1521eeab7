// Package docker wraps the Docker Engine SDK client to observe the
// container engine behind distrobox.
//
// Podman serves the same API on its own socket, so a single client covers
// both engines. pkgbridge never manages containers through this package;
// it only pings the engine for "doctor" and reads distrobox-labelled
// containers to fill in image and runtime details that the distrobox
// listing left out.
package docker
