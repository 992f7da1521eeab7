package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// unknownFamily is shown for boxes that cannot be classified.
const unknownFamily = "?"

// NewListCommand creates the "list" command.
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [boxes]",
		Short: "List Distrobox boxes and their families",
		Long: `List every box discovered through distrobox with its distribution
family, container runtime and image.

Examples:
  pkgbridge list
  pkgbridge list boxes --json`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"boxes"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), application)
		},
	}
}

// boxRow is one line of the list output.
type boxRow struct {
	Name    string `json:"name"`
	Family  string `json:"family"`
	Runtime string `json:"runtime"`
	Image   string `json:"image"`
}

func runList(ctx context.Context, a *app) error {
	dir := a.directory()
	boxes := dir.List(ctx)
	VerboseLog("found %d boxes", len(boxes))

	rows := make([]boxRow, 0, len(boxes))
	for _, b := range boxes {
		family := unknownFamily
		if f, err := dir.Classify(ctx, b.Name); err == nil {
			family = f.String()
		} else {
			VerboseLog("cannot classify %s: %v", b.Name, err)
		}
		rows = append(rows, boxRow{Name: b.Name, Family: family, Runtime: b.Runtime, Image: b.Image})
	}

	printBoxes(a.out, rows)
	return nil
}

func printBoxes(w io.Writer, rows []boxRow) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(struct {
			Boxes []boxRow `json:"boxes"`
		}{Boxes: rows}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprint(w, formatBoxes(rows))
}

// formatBoxes renders the tab-separated box table.
//
//	NAME	FAMILY	RUNTIME	IMAGE
//	debian-stable	debian	podman	docker.io/library/debian:stable
func formatBoxes(rows []boxRow) string {
	if len(rows) == 0 {
		return "No boxes found (is 'distrobox' installed?)\n"
	}

	var b strings.Builder
	b.WriteString("NAME\tFAMILY\tRUNTIME\tIMAGE\n")
	for _, r := range rows {
		runtime := r.Runtime
		if runtime == "" {
			runtime = model.RuntimeUnknown
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.Name, r.Family, runtime, r.Image)
	}
	return b.String()
}
