package selector

import (
	"github.com/distribution/reference"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// DefaultBox is the container created for a family when none exists.
type DefaultBox struct {
	Name  string
	Image string
}

// defaultBoxes maps each family to its well-known container name and
// base image.
var defaultBoxes = map[model.Family]DefaultBox{
	model.FamilyDebian:   {Name: "debian-stable", Image: "docker.io/library/debian:stable"},
	model.FamilyFedora:   {Name: "fedora-latest", Image: "registry.fedoraproject.org/fedora:latest"},
	model.FamilyOpenSuse: {Name: "opensuse-tumbleweed", Image: "registry.opensuse.org/opensuse/tumbleweed:latest"},
	model.FamilyArch:     {Name: "arch", Image: "docker.io/library/archlinux:latest"},
}

// DefaultBoxFor returns the default container for family. The image is
// replaced by imageOverride when it is non-empty.
func DefaultBoxFor(family model.Family, imageOverride string) DefaultBox {
	box := defaultBoxes[family]
	if imageOverride != "" {
		box.Image = imageOverride
	}
	return box
}

// ValidateImage checks that ref is a well-formed image reference such as
// "debian:stable" or "registry.example.com/team/image@sha256:...".
func ValidateImage(ref string) error {
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return zerr.With(zerr.Wrap(err, "invalid image reference "+ref), "image", ref)
	}
	return nil
}
