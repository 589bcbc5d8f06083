package entities

// ExecState is a state of the execution state machine.
type ExecState string

const (
	// StateRejected is terminal: admissibility or authorization failed.
	StateRejected ExecState = "rejected"

	// StateResolving resolves the caller's role.
	StateResolving ExecState = "resolving"

	// StateRunning executes the command under the synchronous timeout.
	StateRunning ExecState = "running"

	// StateAwaitingAsyncResult races an asynchronous result against the
	// second timeout.
	StateAwaitingAsyncResult ExecState = "awaiting_async_result"

	// StateCompleted is terminal: success or a caught error.
	StateCompleted ExecState = "completed"
)

// OutputLine is one line delivered to the caller.
type OutputLine struct {
	Text   string `json:"text"`
	Result bool   `json:"result"`
}

// ExecutionResult is the transient outcome of one execution.
type ExecutionResult struct {
	// Lines holds every line delivered, in delivery order, including the
	// truncation notice.
	Lines []OutputLine `json:"lines"`

	// State is the terminal state reached.
	State ExecState `json:"state"`

	// Role is the role the caller resolved to, RoleDenied when rejected
	// before resolution.
	Role Role `json:"role"`

	// Truncated reports that lines were dropped past the budget.
	Truncated bool `json:"truncated"`

	// Errored reports that the command failed, timed out or was rejected.
	Errored bool `json:"errored"`
}

// ResultTexts returns the text of result-category lines.
func (r ExecutionResult) ResultTexts() []string {
	var out []string
	for _, l := range r.Lines {
		if l.Result {
			out = append(out, l.Text)
		}
	}
	return out
}

// LogTexts returns the text of log-category lines.
func (r ExecutionResult) LogTexts() []string {
	var out []string
	for _, l := range r.Lines {
		if !l.Result {
			out = append(out, l.Text)
		}
	}
	return out
}

// Admission is the outcome of the admissibility check.
type Admission struct {
	Reason string `json:"reason,omitempty"`
	OK     bool   `json:"ok"`
}

// ConsoleMessage is the payload handed to the output transport.
type ConsoleMessage struct {
	Log     []string `json:"log"`
	Results []string `json:"results"`
}
