package export

import (
	"path"
	"strings"

	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// containerApplicationsDir is where desktop entries live inside a container.
const containerApplicationsDir = "/usr/share/applications"

// RewriteDesktopExec prefixes every Exec= line with
// "distrobox enter -n BOX --" unless the line already enters a container.
// All other lines, including line endings, are preserved.
func RewriteDesktopExec(content, box string) string {
	prefix := execPrefix(box)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "Exec=") || strings.Contains(line, "distrobox enter -n") {
			continue
		}
		lines[i] = "Exec=" + prefix + strings.TrimPrefix(line, "Exec=")
	}
	return strings.Join(lines, "\n")
}

// entersBox reports whether content has an Exec= line entering box.
func entersBox(content, box string) bool {
	line := "Exec=" + execPrefix(box)
	return strings.Contains(content, "\n"+line) || strings.HasPrefix(content, line)
}

func execPrefix(box string) string {
	return "distrobox enter -n " + quoteExecArg(box) + " -- "
}

// quoteExecArg quotes one argument of a desktop entry Exec key. Plain
// words are returned unchanged. Anything else is double-quoted with ",
// `, $ and \ escaped, and every backslash is then doubled because Exec is
// itself an escaped string value.
func quoteExecArg(s string) string {
	if shell.Quote(s) == s {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if strings.ContainsRune("\"`$\\", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return strings.ReplaceAll(b.String(), `\`, `\\`)
}

// DesktopAltName returns BASE.BOX.desktop for a colliding entry.
func DesktopAltName(base, box string) string {
	return strings.TrimSuffix(base, ".desktop") + "." + box + ".desktop"
}

// desktopPath normalizes a manifest entry (relative to the applications
// directory, or already absolute) to an absolute in-container path.
func desktopPath(entry string) string {
	if strings.HasPrefix(entry, "/") {
		return path.Clean(entry)
	}
	return path.Join(containerApplicationsDir, entry)
}
