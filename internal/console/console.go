// Package console writes the user-facing progress and follow-up messages of a
// run to the error stream. Styling is applied only when the stream is a
// terminal, so redirected output is plain text.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/Iron-Ham/olx/internal/errors"
)

// Palette colors, shared with the rest of the Charm-styled tooling.
var (
	colorCommand = lipgloss.Color("#A78BFA") // Purple
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#F87171") // Red
)

type styles struct {
	command lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *styles {
	return &styles{
		command: r.NewStyle().Foreground(colorCommand),
		success: r.NewStyle().Bold(true).Foreground(colorSuccess),
		warning: r.NewStyle().Foreground(colorWarning),
		err:     r.NewStyle().Foreground(colorError),
	}
}

// Console writes messages to a single stream.
type Console struct {
	w      io.Writer
	styles *styles
}

type fdWriter interface {
	Fd() uintptr
}

// New creates a Console for w, styling output when w is a terminal.
func New(w io.Writer) *Console {
	if f, ok := w.(fdWriter); ok && term.IsTerminal(int(f.Fd())) {
		return NewStyled(w)
	}
	return &Console{w: w}
}

// NewStyled creates a Console that always styles its output.
func NewStyled(w io.Writer) *Console {
	return &Console{w: w, styles: newStyles(lipgloss.NewRenderer(w))}
}

// Writer returns the underlying stream.
func (c *Console) Writer() io.Writer {
	return c.w
}

func (c *Console) render(pick func(*styles) lipgloss.Style, text string) string {
	if c.styles == nil {
		return text
	}
	return pick(c.styles).Render(text)
}

func (c *Console) commandLine(cmd string) string {
	return "$ " + c.render(func(s *styles) lipgloss.Style { return s.command }, cmd)
}

// BranchFollowUp tells the user how to publish the new branch or leave it.
func (c *Console) BranchFollowUp(branch, mainBranch string) {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("To push this new branch upstream, run:\n\n")
	b.WriteString(c.commandLine("git push -u origin "+branch) + "\n\n")
	fmt.Fprintf(&b, "To switch back to %s, run:\n\n", mainBranch)
	b.WriteString(c.commandLine("git checkout "+mainBranch) + "\n")
	fmt.Fprint(c.w, b.String())
}

// BranchLeftBehind warns that a failed run left its branch checked out.
func (c *Console) BranchLeftBehind(branch, mainBranch string) {
	var b strings.Builder
	b.WriteString(c.render(func(s *styles) lipgloss.Style { return s.warning },
		fmt.Sprintf("The branch '%s' was created before the failure and has been left in place.", branch)))
	b.WriteString("\nTo remove it, run:\n\n")
	b.WriteString(c.commandLine("git checkout "+mainBranch) + "\n")
	b.WriteString(c.commandLine("git branch -D "+branch) + "\n")
	fmt.Fprint(c.w, b.String())
}

// Done acknowledges a completed run.
func (c *Console) Done() {
	fmt.Fprintln(c.w, c.render(func(s *styles) lipgloss.Style { return s.success }, "All done!"))
}

// Error writes the user-facing text of err.
func (c *Console) Error(err error) {
	if err == nil {
		return
	}
	if c.styles == nil {
		errors.Print(c.w, err)
		return
	}
	var buf strings.Builder
	errors.Print(&buf, err)
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = c.styles.err.Render(line)
		}
	}
	fmt.Fprintln(c.w, strings.Join(lines, "\n"))
}
