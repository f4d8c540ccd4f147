package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Prompter shows notices to the person at the terminal and asks for confirmation
type Prompter interface {
	Alert(n *Notice)
	Confirm(ctx context.Context, title, message string) (bool, error)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	severityStyles = map[Severity]lipgloss.Style{
		SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#0099FF")),
		SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true),
		SeverityWarn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Bold(true),
		SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
	}
)

// TerminalPrompter reads answers from in and writes to out.
// A single goroutine owns the reader for the prompter's lifetime.
type TerminalPrompter struct {
	in    *bufio.Reader
	out   io.Writer
	once  sync.Once
	lines chan answer
}

type answer struct {
	line string
	err  error
}

// NewTerminalPrompter creates a prompter over the given streams
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out, lines: make(chan answer)}
}

// Alert prints a notice
func (p *TerminalPrompter) Alert(n *Notice) {
	writeNotice(p.out, n)
}

// Confirm prints the question and waits for y/yes. Anything else, including EOF, declines.
func (p *TerminalPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	p.once.Do(func() { go p.readLines() })

	fmt.Fprintf(p.out, "%s\n%s\nProceed? [y/N]: ", titleStyle.Render(title), message)

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case a, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

func (p *TerminalPrompter) readLines() {
	for {
		line, err := p.in.ReadString('\n')
		p.lines <- answer{line, err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// AutoConfirm accepts every confirmation; used with --yes
type AutoConfirm struct {
	out io.Writer
}

// NewAutoConfirm creates a prompter that never asks
func NewAutoConfirm(out io.Writer) *AutoConfirm {
	return &AutoConfirm{out: out}
}

func (p *AutoConfirm) Alert(n *Notice) {
	writeNotice(p.out, n)
}

func (p *AutoConfirm) Confirm(ctx context.Context, title, message string) (bool, error) {
	fmt.Fprintf(p.out, "%s (auto-confirmed)\n", titleStyle.Render(title))
	return true, nil
}

func writeNotice(out io.Writer, n *Notice) {
	style, ok := severityStyles[n.Severity]
	if !ok {
		style = severityStyles[SeverityInfo]
	}
	fmt.Fprintf(out, "%s %s\n", style.Render("["+string(n.Severity)+"]"), titleStyle.Render(n.Title))
	if n.Message != "" {
		fmt.Fprintf(out, "  %s\n", n.Message)
	}
	if n.Digest != "" {
		fmt.Fprintf(out, "  digest: %s\n", n.Digest)
	}
	if n.Status != "" {
		fmt.Fprintf(out, "  status: %s\n", n.Status)
	}
}
