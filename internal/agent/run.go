package agent

// RunID is the stable identifier for one organize run.
type RunID string

// Mode selects whether mutating tools execute or only simulate.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry_run"
)

// RunStatus captures coarse execution state for the loop state machine.
type RunStatus string

const (
	RunStatusPending          RunStatus = "pending"
	RunStatusRunning          RunStatus = "running"
	RunStatusCompleted        RunStatus = "completed"
	RunStatusFailed           RunStatus = "failed"
	RunStatusMaxStepsExceeded RunStatus = "max_steps_exceeded"
)

// RunInput configures a fresh run.
type RunInput struct {
	RunID        RunID
	Mode         Mode
	SystemPrompt string
	UserPrompt   string
}

// RunState holds the run's transcript and status. Messages grow
// append-only for the duration of the run and are discarded at exit.
type RunState struct {
	ID       RunID     `json:"id"`
	Mode     Mode      `json:"mode"`
	Step     int       `json:"step"`
	Status   RunStatus `json:"status"`
	Output   string    `json:"output,omitempty"`
	Error    string    `json:"error,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}

// NewRunState seeds a pending run with the system and user turns.
func NewRunState(input RunInput) RunState {
	messages := make([]Message, 0, 2)
	if input.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: input.SystemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: input.UserPrompt})

	mode := input.Mode
	if mode == "" {
		mode = ModeLive
	}
	return RunState{
		ID:       input.RunID,
		Mode:     mode,
		Status:   RunStatusPending,
		Messages: messages,
	}
}

// CloneRunState returns a deep copy safe for sinks and tests.
func CloneRunState(in RunState) RunState {
	out := in
	out.Messages = CloneMessages(in.Messages)
	return out
}
