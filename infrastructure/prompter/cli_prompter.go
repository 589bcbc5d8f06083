// Package prompter reads console commands from a terminal or a pipe.
package prompter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// ExitCommand ends a Loop.
const ExitCommand = "exit"

// maxLine is the longest command line the scanner accepts.
const maxLine = 1 << 20

// CliPrompter reads one command per line.
type CliPrompter struct {
	in     io.Reader
	out    io.Writer
	prompt string
}

// NewCliPrompter creates a new CliPrompter.
func NewCliPrompter(in io.Reader, out io.Writer) *CliPrompter {
	return &CliPrompter{in: in, out: out, prompt: "> "}
}

// WithPrompt replaces the prompt shown before each line.
func (p *CliPrompter) WithPrompt(prompt string) *CliPrompter {
	p.prompt = prompt
	return p
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// Loop hands every non-blank line to run until the input ends, the exit
// command is read, or ctx is done. The prompt is only printed when the
// input is a terminal. An error from run stops the loop.
func (p *CliPrompter) Loop(ctx context.Context, run func(ctx context.Context, code string) error) error {
	interactive := p.IsInteractive()
	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if interactive {
			_, _ = fmt.Fprint(p.out, p.prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ExitCommand:
			return nil
		}
		if err := run(ctx, line); err != nil {
			return err
		}
	}
}
