package install

import (
	"fmt"

	"github.com/shinji-kodama/pkgbridge/internal/shell"
)

// Privilege is the identity a Step enters the container with.
type Privilege int

const (
	// PrivilegeRoot enters as the container's root identity
	// ("distrobox enter --root").
	PrivilegeRoot Privilege = iota

	// PrivilegeUser enters as the invoking user and escalates inside the
	// container when possible.
	PrivilegeUser
)

// String returns the name used in progress and diagnostic output.
func (p Privilege) String() string {
	if p == PrivilegeRoot {
		return "root"
	}
	return "user"
}

// Step is one attempt in an escalation plan.
type Step struct {
	Script    string
	Privilege Privilege
}

// AsRoot reports whether the step enters the container as root.
func (s Step) AsRoot() bool {
	return s.Privilege == PrivilegeRoot
}

// Plan returns the ordered attempts for running cmd.
//
// Interactive sessions try the user step first so that a password prompt
// reaches the human, then fall back to root. Non-interactive sessions try
// root first and fall back to a user step that never prompts.
func Plan(cmd string, interactive bool) []Step {
	root := Step{Script: cmd, Privilege: PrivilegeRoot}
	if interactive {
		return []Step{{Script: UserScript(cmd, true), Privilege: PrivilegeUser}, root}
	}
	return []Step{root, {Script: UserScript(cmd, false), Privilege: PrivilegeUser}}
}

// UserScript wraps cmd in the in-container escalation chain:
// passwordless sudo, then prompting sudo (interactive only), then doas,
// and finally cmd without escalation.
func UserScript(cmd string, interactive bool) string {
	q := shell.Quote(cmd)
	if interactive {
		return fmt.Sprintf("if command -v sudo >/dev/null 2>&1 && sudo -n true 2>/dev/null; then sudo -n sh -c %[1]s; "+
			"elif command -v sudo >/dev/null 2>&1; then sudo sh -c %[1]s; "+
			"elif command -v doas >/dev/null 2>&1; then doas sh -c %[1]s; "+
			"else sh -c %[1]s; fi", q)
	}
	return fmt.Sprintf("if command -v sudo >/dev/null 2>&1 && sudo -n true 2>/dev/null; then sudo -n sh -c %[1]s; "+
		"elif command -v doas >/dev/null 2>&1 && doas -n true 2>/dev/null; then doas -n sh -c %[1]s; "+
		"else sh -c %[1]s; fi", q)
}
