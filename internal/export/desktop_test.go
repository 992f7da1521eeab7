package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteDesktopExec(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "wraps plain exec",
			content: "[Desktop Entry]\nExec=app %U\nIcon=app\n",
			want:    "[Desktop Entry]\nExec=distrobox enter -n box -- app %U\nIcon=app\n",
		},
		{
			name:    "leaves wrapped exec alone",
			content: "Exec=distrobox enter -n other -- app\n",
			want:    "Exec=distrobox enter -n other -- app\n",
		},
		{
			name:    "action groups are rewritten too",
			content: "Exec=app\n[Desktop Action new]\nExec=app --new\nTryExec=app",
			want:    "Exec=distrobox enter -n box -- app\n[Desktop Action new]\nExec=distrobox enter -n box -- app --new\nTryExec=app",
		},
		{
			name:    "indented keys are not exec lines",
			content: "  Exec=app",
			want:    "  Exec=app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteDesktopExec(tt.content, "box")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, RewriteDesktopExec(got, "box"), "rewrite is idempotent")
		})
	}
}

func TestDesktopAltName(t *testing.T) {
	assert.Equal(t, "org.app.Editor.fed.desktop", DesktopAltName("org.app.Editor.desktop", "fed"))
}

func TestDesktopPath(t *testing.T) {
	assert.Equal(t, "/usr/share/applications/kde/x.desktop", desktopPath("kde/x.desktop"))
	assert.Equal(t, "/opt/app/x.desktop", desktopPath("/opt/app/../app/x.desktop"))
}

func TestRewriteDesktopExec_QuotesBox(t *testing.T) {
	tests := []struct {
		box  string
		want string
	}{
		{"my box", `Exec=distrobox enter -n "my box" -- app %U`},
		{"a$b", `Exec=distrobox enter -n "a\\$b" -- app %U`},
		{"plain-box.1", `Exec=distrobox enter -n plain-box.1 -- app %U`},
	}

	for _, tt := range tests {
		t.Run(tt.box, func(t *testing.T) {
			got := RewriteDesktopExec("Exec=app %U", tt.box)
			assert.Equal(t, tt.want, got)
			assert.True(t, entersBox(got, tt.box))
		})
	}
}
