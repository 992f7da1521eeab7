package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

type fakeLister struct {
	summaries []container.Summary
	err       error
	got       container.ListOptions
}

func (f *fakeLister) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.got = opts
	return f.summaries, f.err
}

func TestDetectHost(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		present []string
		want    string
		wantErr bool
	}{
		{
			name: "DOCKER_HOST wins",
			env:  map[string]string{"DOCKER_HOST": "tcp://1.2.3.4:2375"},
			want: "tcp://1.2.3.4:2375",
		},
		{
			name:    "docker socket",
			present: []string{"/var/run/docker.sock", "/run/podman/podman.sock"},
			want:    "unix:///var/run/docker.sock",
		},
		{
			name:    "rootless podman",
			env:     map[string]string{"XDG_RUNTIME_DIR": "/run/user/1000"},
			present: []string{"/run/user/1000/podman/podman.sock", "/run/podman/podman.sock"},
			want:    "unix:///run/user/1000/podman/podman.sock",
		},
		{
			name:    "rootful podman",
			present: []string{"/run/podman/podman.sock"},
			want:    "unix:///run/podman/podman.sock",
		},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exists := func(p string) bool {
				for _, q := range tt.present {
					if p == q {
						return true
					}
				}
				return false
			}
			got, err := detectHost(func(k string) string { return tt.env[k] }, exists)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoSocket))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuntimeForHost(t *testing.T) {
	assert.Equal(t, RuntimePodman, RuntimeForHost("unix:///run/user/1000/podman/podman.sock"))
	assert.Equal(t, RuntimeDocker, RuntimeForHost("unix:///var/run/docker.sock"))
	assert.Equal(t, RuntimeDocker, RuntimeForHost("tcp://host:2375"))
}

func TestListDistrobox(t *testing.T) {
	lister := &fakeLister{summaries: []container.Summary{
		{Names: []string{"/deb"}, Image: "docker.io/library/debian:stable", Labels: map[string]string{"manager": "distrobox"}},
		{Names: []string{"/web"}, Image: "nginx", Labels: map[string]string{"app": "web"}},
		{Names: nil, Labels: map[string]string{"manager": "distrobox"}},
	}}

	records, err := listDistrobox(context.Background(), lister, RuntimePodman)
	require.NoError(t, err)
	assert.Equal(t, []model.ContainerRecord{
		{Name: "deb", Image: "docker.io/library/debian:stable", Runtime: RuntimePodman},
	}, records)

	assert.True(t, lister.got.All)
	assert.Equal(t, []string{"manager=distrobox"}, lister.got.Filters.Get("label"))
}

func TestListDistrobox_Error(t *testing.T) {
	_, err := listDistrobox(context.Background(), &fakeLister{err: errors.New("boom")}, RuntimeDocker)
	require.Error(t, err)
}

func TestEnrich(t *testing.T) {
	records := []model.ContainerRecord{
		{Name: "a", Runtime: model.RuntimeUnknown},
		{Name: "b", Image: "fedora:40", Runtime: "podman"},
		{Name: "c", Runtime: model.RuntimeUnknown},
	}
	known := []model.ContainerRecord{
		{Name: "a", Image: "debian:12", Runtime: "docker"},
		{Name: "b", Image: "other", Runtime: "docker"},
	}

	assert.Equal(t, []model.ContainerRecord{
		{Name: "a", Image: "debian:12", Runtime: "docker"},
		{Name: "b", Image: "fedora:40", Runtime: "podman"},
		{Name: "c", Runtime: model.RuntimeUnknown},
	}, Enrich(records, known))
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "box", ContainerName([]string{"/box", "/alias"}))
	assert.Equal(t, "", ContainerName(nil))
}
