package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gkampitakis/ciinfo"
	"github.com/mattn/go-isatty"

	"github.com/shinji-kodama/pkgbridge/internal/model"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

// isInteractive reports whether both stdin and stdout are terminals and
// the process is not running under CI.
func isInteractive() bool {
	if ciinfo.IsCI {
		return false
	}
	return isTTY(os.Stdin.Fd()) && isTTY(os.Stdout.Fd())
}

func isTTY(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// terminalPrompter asks questions on the terminal. It satisfies
// selector.Prompter.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// Choose lists the matches and reads a 1-based choice.
func (p *terminalPrompter) Choose(matches []model.SelectedContainer) (int, bool) {
	fmt.Fprintln(p.out, headingStyle.Render("Multiple matching boxes found:"))
	for i, m := range matches {
		fmt.Fprintf(p.out, "  [%d] %s (%s)\n", i+1, m.Name, m.Family)
	}
	fmt.Fprint(p.out, questionStyle.Render(fmt.Sprintf("Select a box [1-%d]:", len(matches)))+" ")

	n, err := strconv.Atoi(p.readLine())
	if err != nil || n < 1 || n > len(matches) {
		return 0, false
	}
	return n - 1, true
}

// Confirm asks a yes/no question that defaults to no.
func (p *terminalPrompter) Confirm(question string) bool {
	return p.Ask(question, false)
}

// Ask asks a yes/no question. An empty answer selects defaultYes.
func (p *terminalPrompter) Ask(question string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	fmt.Fprint(p.out, questionStyle.Render(question)+" "+hint+" ")

	switch strings.ToLower(p.readLine()) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *terminalPrompter) readLine() string {
	line, _ := p.in.ReadString('\n')
	return strings.TrimSpace(line)
}
