package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/pkgbridge/internal/config"
	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

type fixedAnswer bool

func (f fixedAnswer) Ask(string, bool) bool { return bool(f) }

// recordingHelper captures desktop exports made during onboarding.
type recordingHelper struct {
	apps []string
}

func (h *recordingHelper) ExportBin(context.Context, string, string) error { return nil }

func (h *recordingHelper) ExportApp(_ context.Context, box, path string) error {
	h.apps = append(h.apps, box+":"+path)
	return nil
}

func (h *recordingHelper) UnexportBin(context.Context, string, string) error { return nil }

func (h *recordingHelper) UnexportApp(context.Context, string, string) error { return nil }

func appsHandler(apps map[string]string) handler {
	return func(req shell.Request) (shell.Result, error, bool) {
		box := ""
		if len(req.Args) >= 5 {
			box = req.Args[len(req.Args)-5]
		}
		switch script(req) {
		case countAppsScript:
			n := strings.Count(apps[box], "\n")
			return shell.Result{Stdout: strconv.Itoa(n) + "\n"}, nil, true
		case listAppsScript:
			if apps[box] == "" {
				return shell.Result{ExitCode: 2}, errors.New("no apps"), true
			}
			return shell.Result{Stdout: apps[box]}, nil, true
		}
		return shell.Result{}, nil, false
	}
}

func loadState(t *testing.T, a *app) config.State {
	t.Helper()
	st, err := config.LoadState(a.paths.StateFile)
	require.NoError(t, err)
	return st
}

func TestRunFirstRun_Accepted(t *testing.T) {
	ids := map[string]string{"deb": "debian", "deb2": "ubuntu", "fed": "fedora"}
	apps := map[string]string{
		"deb": "/usr/share/applications/a.desktop\n/usr/share/applications/b.desktop\n",
		"fed": "/usr/share/applications/c.desktop\n",
	}
	a, out := newTestApp(t, nil, chain(boxesHandler(ids, "deb", "deb2", "fed"), appsHandler(apps)))
	helper := &recordingHelper{}
	a.exportEngine().SetHelper(helper)

	runFirstRun(context.Background(), a, fixedAnswer(true))

	assert.Contains(t, out.String(), "- Found families: debian, fedora\n")
	assert.Contains(t, out.String(), "- Found ~3 desktop apps across boxes\n")
	assert.Contains(t, out.String(), "First-run export completed.\n")

	// The first box of each family becomes its default.
	saved, err := config.LoadSettings(a.paths.ConfigFile)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"debian": "deb", "fedora": "fed"}, saved.PMDefaults)

	for _, shim := range []string{"apt", "apt-get", "dnf"} {
		_, err := os.Stat(filepath.Join(a.paths.BinDir, shim))
		assert.NoError(t, err, shim)
	}

	sort.Strings(helper.apps)
	assert.Equal(t, []string{
		"deb:/usr/share/applications/a.desktop",
		"deb:/usr/share/applications/b.desktop",
		"fed:/usr/share/applications/c.desktop",
	}, helper.apps)

	assert.True(t, loadState(t, a).FirstRunDone)
}

func TestRunFirstRun_Declined(t *testing.T) {
	a, out := newTestApp(t, nil, chain(boxesHandler(map[string]string{"fed": "fedora"}, "fed"), appsHandler(nil)))

	runFirstRun(context.Background(), a, fixedAnswer(false))

	assert.Contains(t, out.String(), "Skipped.")
	_, err := os.Stat(a.paths.ConfigFile)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(a.paths.BinDir, "dnf"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.True(t, loadState(t, a).FirstRunDone)
}

func TestRunFirstRun_NoBoxes(t *testing.T) {
	a, out := newTestApp(t, nil, boxesHandler(nil))

	runFirstRun(context.Background(), a, fixedAnswer(true))

	assert.Empty(t, out.String())
	assert.True(t, loadState(t, a).FirstRunDone)
}

func TestMaybeFirstRun_SkipsWhenDoneOrNonInteractive(t *testing.T) {
	a, out := newTestApp(t, nil, nil)
	a.interactive = false
	maybeFirstRun(context.Background(), a)
	assert.Empty(t, out.String())
	assert.False(t, loadState(t, a).FirstRunDone)

	require.NoError(t, config.SaveState(a.paths.StateFile, config.State{FirstRunDone: true}))
	a.interactive = true
	maybeFirstRun(context.Background(), a)
	assert.Empty(t, out.String())
}

func TestSettingsDefaultsRoundTripThroughFamilies(t *testing.T) {
	s := config.Default()
	for _, f := range model.AllFamilies {
		s.SetDefault(f, "box-"+f.Key())
	}
	assert.Equal(t, []string{"arch", "debian", "fedora", "opensuse"}, s.DefaultFamilies())
}
