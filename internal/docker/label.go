package docker

import (
	"strings"

	"github.com/docker/docker/api/types/filters"
)

// distrobox tags every container it creates with manager=distrobox.
const (
	LabelManager = "manager"
	ManagerValue = "distrobox"
)

// FilterArgs selects distrobox-created containers server-side.
func FilterArgs() filters.Args {
	return filters.NewArgs(filters.Arg("label", LabelManager+"="+ManagerValue))
}

// IsDistrobox reports whether labels mark a distrobox container.
func IsDistrobox(labels map[string]string) bool {
	return labels[LabelManager] == ManagerValue
}

// ContainerName returns the primary name from an API name list. The
// engine reports names with a leading slash.
func ContainerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}
