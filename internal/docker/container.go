package docker

import (
	"context"

	"github.com/docker/docker/api/types/container"
	"go.trai.ch/zerr"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// containerLister is the part of the SDK client used for listing.
type containerLister interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// ListDistroboxContainers returns every distrobox container known to the
// engine, stopped ones included.
func ListDistroboxContainers(ctx context.Context, cli *Client) ([]model.ContainerRecord, error) {
	return listDistrobox(ctx, cli.Inner(), cli.Runtime())
}

func listDistrobox(ctx context.Context, api containerLister, runtime string) ([]model.ContainerRecord, error) {
	summaries, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: FilterArgs(),
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list containers")
	}

	records := make([]model.ContainerRecord, 0, len(summaries))
	for _, s := range summaries {
		// Some podman versions ignore label filters on the compat API.
		if !IsDistrobox(s.Labels) {
			continue
		}
		name := ContainerName(s.Names)
		if name == "" {
			continue
		}
		records = append(records, model.ContainerRecord{Name: name, Image: s.Image, Runtime: runtime})
	}
	return records, nil
}

// Enrich fills missing image and unknown runtime fields of records from
// the engine's view of the same containers. Records are matched by name;
// anything the engine does not know is left untouched.
func Enrich(records, known []model.ContainerRecord) []model.ContainerRecord {
	byName := make(map[string]model.ContainerRecord, len(known))
	for _, k := range known {
		byName[k.Name] = k
	}

	out := make([]model.ContainerRecord, len(records))
	for i, r := range records {
		if k, ok := byName[r.Name]; ok {
			if r.Image == "" {
				r.Image = k.Image
			}
			if r.Runtime == "" || r.Runtime == model.RuntimeUnknown {
				r.Runtime = k.Runtime
			}
		}
		out[i] = r
	}
	return out
}
