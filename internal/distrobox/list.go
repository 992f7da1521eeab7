package distrobox

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/pkgbridge/internal/model"
	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// jsonBox is one container entry in "distrobox list --json" output.
type jsonBox struct {
	Name   string `json:"name"`
	Image  string `json:"image"`
	Engine string `json:"engine"`
}

// jsonList is the object form of the JSON listing.
type jsonList struct {
	Containers []jsonBox `json:"containers"`
}

// List discovers the existing containers.
//
// It first asks for structured output ("distrobox list --json"). When
// that fails, prints nothing, or cannot be parsed, it falls back to the
// plain-text table. A missing tool, which is not retried, or a non-zero
// exit of the plain listing yields an empty slice: no containers is a
// valid state.
func (c *Client) List(ctx context.Context) []model.ContainerRecord {
	res, err := c.runner.Run(ctx, shell.Request{
		Name:    c.binary,
		Args:    []string{"list", "--json"},
		Capture: true,
	})
	if shell.IsNotFound(err) {
		c.logger.Warn(c.binary+" is not installed; no containers available", "error", err)
		return []model.ContainerRecord{}
	}
	if err == nil && strings.TrimSpace(res.Stdout) != "" {
		records, perr := ParseJSONList(res.Stdout)
		if perr == nil {
			return records
		}
		c.logger.Debug("unparseable JSON listing, falling back to text", "error", perr)
	}

	res, err = c.runner.Run(ctx, shell.Request{
		Name:    c.binary,
		Args:    []string{"list"},
		Capture: true,
	})
	if err != nil {
		c.logger.Debug("distrobox list failed; assuming no containers", "error", err)
		return []model.ContainerRecord{}
	}
	return ParsePlainList(res.Stdout)
}

// ParseJSONList parses the JSON listing. Both a top-level array and an
// object with a "containers" array are accepted. Comments and trailing
// commas emitted by wrapper scripts are tolerated.
func ParseJSONList(output string) ([]model.ContainerRecord, error) {
	data := jsonc.ToJSON([]byte(output))

	var boxes []jsonBox
	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		if err := json.Unmarshal(data, &boxes); err != nil {
			return nil, err
		}
	} else {
		var list jsonList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		boxes = list.Containers
	}

	records := make([]model.ContainerRecord, 0, len(boxes))
	for _, b := range boxes {
		if b.Name == "" {
			continue
		}
		runtime := b.Engine
		if runtime == "" {
			runtime = model.RuntimeUnknown
		}
		records = append(records, model.ContainerRecord{Name: b.Name, Image: b.Image, Runtime: runtime})
	}
	return records, nil
}

// ParsePlainList parses the unstructured "distrobox list" output.
//
// Two dialects are handled:
//
//	ID           | NAME     | STATUS     | IMAGE
//	1a2b3c4d5e6f | fedora   | Up 2 hours | registry.fedoraproject.org/fedora:39
//
// and a whitespace-separated legacy form "NAME IMAGE". If a pipe header
// was seen earlier in the same output, a whitespace row whose first token
// is at least 6 characters long is read as "ID NAME STATUS IMAGE".
func ParsePlainList(output string) []model.ContainerRecord {
	records := []model.ContainerRecord{}
	sawPipeHeader := false

	for _, line := range strings.Split(output, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}

		if strings.Contains(t, "|") {
			cols := splitColumns(t)
			if hasColumn(cols, "NAME") && hasColumn(cols, "ID") {
				sawPipeHeader = true
				continue
			}
			if isSeparatorRow(cols) {
				continue
			}
			name := cols[1]
			if name == "" || strings.EqualFold(name, "NAME") {
				continue
			}
			rec := model.ContainerRecord{Name: name, Runtime: model.RuntimeUnknown}
			if len(cols) > 3 {
				rec.Image = cols[3]
			}
			records = append(records, rec)
			continue
		}

		if isLegacyHeader(t) || strings.Trim(t, "-+= ") == "" {
			continue
		}

		parts := strings.Fields(t)
		rec := model.ContainerRecord{Runtime: model.RuntimeUnknown}
		if sawPipeHeader && len(parts[0]) >= 6 && len(parts) > 1 {
			rec.Name = parts[1]
			if len(parts) > 3 {
				rec.Image = parts[3]
			}
		} else {
			rec.Name = parts[0]
			if strings.EqualFold(rec.Name, "NAME") || strings.EqualFold(rec.Name, "Created") {
				continue
			}
			if len(parts) > 1 {
				rec.Image = parts[1]
			}
		}
		records = append(records, rec)
	}

	return records
}

func splitColumns(line string) []string {
	cols := strings.Split(line, "|")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}

func hasColumn(cols []string, want string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, want) {
			return true
		}
	}
	return false
}

// isSeparatorRow reports rows made only of '-' and '+' characters.
func isSeparatorRow(cols []string) bool {
	for _, c := range cols {
		if strings.Trim(c, "-+") != "" {
			return false
		}
	}
	return true
}

func isLegacyHeader(t string) bool {
	return strings.HasPrefix(t, "NAME") ||
		strings.HasPrefix(t, "+---") ||
		strings.Contains(t, "CONTAINER ID") ||
		strings.EqualFold(t, "id")
}
