// File: api/schemas/turns.go
package schemas

import "encoding/json"

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript entry. The transcript is append-only and owned
// by the loop controller; transports read it to rebuild provider payloads.
type Message struct {
	Role Role `json:"role"`

	// Text is the message body: the task prompt, the model's commentary,
	// or a tool error description.
	Text string `json:"text,omitempty"`

	// Call echoes the function call an assistant message carried, so the
	// transport can replay it to the provider verbatim.
	Call *ActionRequest `json:"call,omitempty"`

	// CallID correlates a tool result back to the request it answers.
	CallID string `json:"call_id,omitempty"`

	// ScreenshotB64 is the base64 PNG observation attached to a tool
	// result. URL is the page address at capture time.
	ScreenshotB64 string `json:"screenshot_b64,omitempty"`
	URL           string `json:"url,omitempty"`

	// IsError marks a tool result that reports a recoverable action
	// failure instead of an observation.
	IsError bool `json:"is_error,omitempty"`
}

// ActionRequest is one function call emitted by the model, still in wire
// form. Args stays raw until the translator decodes and validates it.
type ActionRequest struct {
	CallID       string          `json:"call_id"`
	Name         string          `json:"name"`
	Args         json.RawMessage `json:"args"`
	SafetyChecks []SafetyCheck   `json:"safety_checks,omitempty"`
}

// SafetyCheck is a provider-flagged hazard attached to an action request.
// The gate must resolve every check before the action may dispatch.
type SafetyCheck struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// TurnItemKind distinguishes the two things a model turn can contain.
type TurnItemKind string

const (
	TurnItemText   TurnItemKind = "text"
	TurnItemAction TurnItemKind = "action"
)

// TurnItem is one ordered element of a model turn.
type TurnItem struct {
	Kind    TurnItemKind   `json:"kind"`
	Text    string         `json:"text,omitempty"`
	Request *ActionRequest `json:"request,omitempty"`
}

// TokenUsage is the provider-reported token accounting for one turn.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelTurn is one full response from the model: interleaved commentary and
// action requests, preserved in emission order.
type ModelTurn struct {
	Items      []TurnItem `json:"items"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      TokenUsage `json:"usage"`
}

// Texts returns the turn's commentary segments in order.
func (t *ModelTurn) Texts() []string {
	var out []string
	for _, item := range t.Items {
		if item.Kind == TurnItemText && item.Text != "" {
			out = append(out, item.Text)
		}
	}
	return out
}

// Requests returns the turn's action requests in order.
func (t *ModelTurn) Requests() []*ActionRequest {
	var out []*ActionRequest
	for _, item := range t.Items {
		if item.Kind == TurnItemAction && item.Request != nil {
			out = append(out, item.Request)
		}
	}
	return out
}
