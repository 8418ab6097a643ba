// File: internal/agent/models.go
package agent

import (
	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// TaskState is the loop's position within one iteration.
type TaskState string

const (
	StateIdle        TaskState = "idle"
	StateRequesting  TaskState = "requesting"
	StateDispatching TaskState = "dispatching"
	StateEvaluating  TaskState = "evaluating"
	StateDone        TaskState = "done"
)

// TerminationReason says why a task stopped.
type TerminationReason string

const (
	ReasonExplicitSuccess  TerminationReason = "explicit-success"
	ReasonExplicitFailure  TerminationReason = "explicit-failure"
	ReasonHeuristicSuccess TerminationReason = "heuristic-success"
	ReasonHeuristicFailure TerminationReason = "heuristic-failure"
	ReasonRepetition       TerminationReason = "repetition"
	ReasonStalled          TerminationReason = "stalled"
	ReasonIterationCap     TerminationReason = "iteration-cap"
)

// Verdict is a termination decision.
type Verdict struct {
	Reason  TerminationReason
	Success bool
}

// Result is the outcome of one task run.
type Result struct {
	FinalText  string
	Reason     TerminationReason
	Success    bool
	Iterations int
}

// NoFinalMessage is the result text when the model never produced any
// commentary.
const NoFinalMessage = "Task execution completed (no final message)"

// Transcript is the append-only conversation for one task. It lives in
// memory only and is discarded when the task ends.
type Transcript struct {
	messages []schemas.Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) Append(msg schemas.Message) {
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the entries so callers cannot mutate history.
func (t *Transcript) Messages() []schemas.Message {
	out := make([]schemas.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// LastAssistantText returns the most recent non-empty assistant commentary,
// or "" when there is none.
func (t *Transcript) LastAssistantText() string {
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.Role == schemas.RoleAssistant && m.Text != "" {
			return m.Text
		}
	}
	return ""
}

// RecentAssistantTexts returns up to n non-empty assistant texts preceding
// the latest one, newest first.
func (t *Transcript) RecentAssistantTexts(n int) []string {
	var out []string
	seenLatest := false
	for i := len(t.messages) - 1; i >= 0 && len(out) < n; i-- {
		m := t.messages[i]
		if m.Role != schemas.RoleAssistant || m.Text == "" {
			continue
		}
		if !seenLatest {
			seenLatest = true
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
