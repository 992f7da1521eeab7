package cli

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/shinji-kodama/pkgbridge/internal/config"
	"github.com/shinji-kodama/pkgbridge/internal/model"
)

const (
	countAppsScript = "ls -1 /usr/share/applications/*.desktop 2>/dev/null | wc -l"
	listAppsScript  = "ls -1 /usr/share/applications/*.desktop 2>/dev/null"
)

// asker answers a yes/no question. *terminalPrompter satisfies it.
type asker interface {
	Ask(question string, defaultYes bool) bool
}

// maybeFirstRun runs onboarding once, and only in interactive sessions.
func maybeFirstRun(ctx context.Context, a *app) {
	st, err := config.LoadState(a.paths.StateFile)
	if err != nil {
		a.logger.Warn("ignoring unreadable state file", "error", err)
	}
	if st.FirstRunDone || !a.interactive {
		return
	}
	runFirstRun(ctx, a, a.prompter())
}

// runFirstRun offers to set per-family defaults, generate shims and
// export every desktop entry of the existing boxes. The state flag is
// set afterwards whatever the answer.
func runFirstRun(ctx context.Context, a *app, ask asker) {
	defer markFirstRunDone(a)

	dir := a.directory()
	boxes := dir.List(ctx)
	if len(boxes) == 0 {
		return
	}

	// The first box of each family becomes that family's default.
	defaults := map[model.Family]string{}
	totalApps := 0
	for _, b := range boxes {
		family, err := dir.Classify(ctx, b.Name)
		if err != nil {
			continue
		}
		if _, ok := defaults[family]; !ok {
			defaults[family] = b.Name
		}
		if res, err := a.distrobox().EnterCapture(ctx, b.Name, countAppsScript, false); err == nil {
			n, _ := strconv.Atoi(strings.TrimSpace(res.Stdout))
			totalApps += n
		}
	}
	if len(defaults) == 0 && totalApps == 0 {
		return
	}

	fmt.Fprintln(a.out, headingStyle.Render("pkgbridge first-run setup:"))
	var families []string
	for _, f := range model.AllFamilies {
		if _, ok := defaults[f]; ok {
			families = append(families, f.String())
		}
	}
	if len(families) > 0 {
		fmt.Fprintf(a.out, "- Found families: %s\n", strings.Join(families, ", "))
	}
	if totalApps > 0 {
		fmt.Fprintf(a.out, "- Found ~%d desktop apps across boxes\n", totalApps)
	}

	if !ask.Ask("Generate package-manager shims and export existing desktop apps now?", true) {
		fmt.Fprintln(a.out, hintStyle.Render("Skipped. Run 'pkgbridge pm generate-shims' later to set up shims."))
		return
	}

	for family, box := range defaults {
		a.settings.SetDefault(family, box)
	}
	if err := config.SaveSettings(a.paths.ConfigFile, a.settings); err != nil {
		a.logger.Warn("could not save defaults", "error", err)
	}
	if err := generateShims(a); err != nil {
		a.logger.Warn("could not generate shims", "error", err)
	}

	helper := a.exportEngine().Helper(ctx)
	for _, b := range boxes {
		res, err := a.distrobox().EnterCapture(ctx, b.Name, listAppsScript, false)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(res.Stdout, "\n") {
			entry := strings.TrimSpace(line)
			if entry == "" {
				continue
			}
			if err := helper.ExportApp(ctx, b.Name, entry); err != nil {
				a.logger.Warn("could not export app", "box", b.Name, "app", path.Base(entry), "error", err)
			}
		}
	}
	fmt.Fprintln(a.out, "First-run export completed.")
}

func markFirstRunDone(a *app) {
	if err := config.SaveState(a.paths.StateFile, config.State{FirstRunDone: true}); err != nil {
		a.logger.Warn("could not save first-run state", "error", err)
	}
}
