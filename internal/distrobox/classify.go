package distrobox

import (
	"context"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/ini.v1"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

// osReleaseScript prints the release file. Missing files print nothing so
// the classification failure is reported by the token check instead.
const osReleaseScript = "cat /etc/os-release 2>/dev/null || true"

// familyTokens lists, in evaluation order, the os-release tokens that map
// to each family. The first family with a matching token wins.
var familyTokens = []struct {
	family model.Family
	tokens []string
}{
	{model.FamilyDebian, []string{"debian", "ubuntu"}},
	{model.FamilyFedora, []string{"fedora", "rhel", "centos"}},
	{model.FamilyOpenSuse, []string{"opensuse", "sles", "suse"}},
	{model.FamilyArch, []string{"arch", "manjaro", "endeavouros"}},
}

// Classify determines the distribution family of the named container by
// reading /etc/os-release inside it.
//
// Returns an error wrapping model.ErrClassificationFailure when the
// container cannot be entered or none of its ID / ID_LIKE tokens are
// recognised.
func (c *Client) Classify(ctx context.Context, name string) (model.Family, error) {
	res, err := c.EnterCapture(ctx, name, osReleaseScript, false)
	if err != nil {
		return "", zerr.With(zerr.Wrap(model.ErrClassificationFailure, "cannot enter container: "+err.Error()), "box", name)
	}

	id, idLike := ParseOSRelease(res.Stdout)
	family, ok := ClassifyIDs(id, idLike)
	if !ok {
		return "", zerr.With(zerr.With(zerr.Wrap(model.ErrClassificationFailure, "unrecognised distribution"), "box", name), "id", id)
	}
	return family, nil
}

// osReleaseOptions reads os-release assignments as flat KEY=VALUE pairs:
// no continuation lines and no multi-line values.
var osReleaseOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	SkipUnrecognizableLines:    true,
	KeyValueDelimiters:         "=",
	IgnoreContinuation:         true,
	UnescapeValueDoubleQuotes:  true,
	AllowPythonMultilineValues: false,
}

// ParseOSRelease extracts the ID and ID_LIKE fields from os-release
// content. Values are unquoted and lower-cased; ID_LIKE is split on
// whitespace.
//
// Each line is loaded on its own so a malformed line (an unterminated
// quote, a stray section header) only loses itself.
func ParseOSRelease(content string) (string, []string) {
	values := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '[' {
			continue
		}
		cfg, err := ini.LoadSources(osReleaseOptions, []byte(line))
		if err != nil {
			continue
		}
		for _, key := range cfg.Section("").Keys() {
			values[key.Name()] = key.String()
		}
	}

	id := strings.ToLower(unquote(values["ID"]))

	var idLike []string
	for _, token := range strings.Fields(unquote(values["ID_LIKE"])) {
		idLike = append(idLike, strings.ToLower(token))
	}
	return id, idLike
}

// ClassifyIDs maps os-release identifiers onto a family.
func ClassifyIDs(id string, idLike []string) (model.Family, bool) {
	tokens := make(map[string]struct{}, len(idLike)+1)
	if id != "" {
		tokens[id] = struct{}{}
	}
	for _, t := range idLike {
		tokens[t] = struct{}{}
	}

	for _, ft := range familyTokens {
		for _, t := range ft.tokens {
			if _, ok := tokens[t]; ok {
				return ft.family, true
			}
		}
	}
	return "", false
}

// unquote strips one layer of matching single or double quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
