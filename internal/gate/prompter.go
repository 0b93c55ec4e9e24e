package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// TerminalPrompter asks a yes/no question on the console and blocks for
// the answer. Anything other than y/yes is a decline.
type TerminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

var _ Prompter = (*TerminalPrompter)(nil)

func (p *TerminalPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if _, err := fmt.Fprintf(p.out, "%s - proceed? [y/N] ", prompt); err != nil {
		return false, err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
