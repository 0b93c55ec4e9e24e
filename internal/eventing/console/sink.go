// Package console renders loop events as human-readable progress lines.
// Purely presentational: it never influences the run.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/organize-agent/organize/internal/agent"
)

type styles struct {
	banner    lipgloss.Style
	agentText lipgloss.Style
	toolCall  lipgloss.Style
	toolError lipgloss.Style
	simulated lipgloss.Style
	final     lipgloss.Style
}

func newStyles() styles {
	return styles{
		banner:    lipgloss.NewStyle().Bold(true),
		agentText: lipgloss.NewStyle(),
		toolCall:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		toolError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		simulated: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		final:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
	}
}

// Sink writes one line per event to the console.
type Sink struct {
	mu     sync.Mutex
	out    io.Writer
	styles styles
}

var _ agent.EventSink = (*Sink)(nil)

func New(out io.Writer) *Sink {
	return &Sink{
		out:    out,
		styles: newStyles(),
	}
}

func (s *Sink) Publish(_ context.Context, event agent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case agent.EventTypeRunStarted:
		s.println(s.styles.banner.Render(fmt.Sprintf("run %s started (%s)", event.RunID, event.Description)))
	case agent.EventTypeAssistantMessage:
		if event.Message != nil && strings.TrimSpace(event.Message.Content) != "" {
			s.println(s.styles.agentText.Render("agent: " + event.Message.Content))
		}
	case agent.EventTypeToolCall:
		if event.ToolCall != nil {
			s.println(s.styles.toolCall.Render("[tool] " + describeCall(*event.ToolCall)))
		}
	case agent.EventTypeToolResult:
		if event.ToolResult != nil {
			s.printToolResult(*event.ToolResult)
		}
	case agent.EventTypeRunCompleted:
		s.println(s.styles.final.Render("run complete"))
	case agent.EventTypeRunFailed:
		s.println(s.styles.toolError.Render("run failed: " + event.Description))
	}
	return nil
}

func (s *Sink) printToolResult(result agent.ToolResult) {
	switch {
	case result.IsError:
		s.println(s.styles.toolError.Render(fmt.Sprintf("[%s] error: %s", result.Name, result.Content)))
	case result.Simulated:
		s.println(s.styles.simulated.Render(fmt.Sprintf("[%s] (dry-run) %s", result.Name, result.Content)))
	default:
		s.println(s.styles.toolCall.Render(fmt.Sprintf("[%s] %s", result.Name, result.Content)))
	}
}

func (s *Sink) println(line string) {
	fmt.Fprintln(s.out, line)
}

func describeCall(call agent.ToolCall) string {
	switch call.Name {
	case "list_directory":
		return fmt.Sprintf("listing %v", call.Arguments["path"])
	case "create_folder":
		return fmt.Sprintf("creating folder %v", call.Arguments["path"])
	case "move_file":
		return fmt.Sprintf("moving %v -> %v", call.Arguments["source"], call.Arguments["destination"])
	default:
		return call.Name
	}
}
