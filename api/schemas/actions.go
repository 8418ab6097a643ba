// File: api/schemas/actions.go
package schemas

// ActionType enumerates the model-facing action vocabulary. The set is
// closed: anything outside it is rejected at parse time, never dispatched.
type ActionType string

const (
	ActionScreenshot  ActionType = "screenshot"
	ActionLeftClick   ActionType = "left_click"
	ActionRightClick  ActionType = "right_click"
	ActionMiddleClick ActionType = "middle_click"
	ActionDoubleClick ActionType = "double_click"
	ActionTripleClick ActionType = "triple_click"
	ActionMouseMove   ActionType = "mouse_move"
	ActionDrag        ActionType = "left_click_drag"
	ActionScroll      ActionType = "scroll"
	ActionTypeText    ActionType = "type"
	ActionKey         ActionType = "key"
	ActionHoldKey     ActionType = "hold_key"
	ActionWait        ActionType = "wait"
	ActionNavigate    ActionType = "goto"
	ActionBack        ActionType = "back"
	ActionForward     ActionType = "forward"
)

// KnownActionTypes lists every member of the vocabulary, in the order they
// are declared to the model.
var KnownActionTypes = []ActionType{
	ActionScreenshot, ActionLeftClick, ActionRightClick, ActionMiddleClick,
	ActionDoubleClick, ActionTripleClick, ActionMouseMove, ActionDrag,
	ActionScroll, ActionTypeText, ActionKey, ActionHoldKey, ActionWait,
	ActionNavigate, ActionBack, ActionForward,
}

// ScrollDirection is the cardinal direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Action is one decoded instruction from the model. Type selects which of
// the optional fields are meaningful; the translator validates the
// combination before anything reaches the browser.
type Action struct {
	Type ActionType `json:"type"`

	// Coordinate is the target in model space (clicks, moves, scroll
	// anchor). Nil means "reuse the last pointer position".
	Coordinate *Point `json:"coordinate,omitempty"`

	// Path is the waypoint list for left_click_drag, in model space.
	Path []Point `json:"path,omitempty"`

	// Text carries the payload for type (literal text), key (combo such as
	// "ctrl+shift+t"), hold_key (single key name) and goto (URL).
	Text string `json:"text,omitempty"`

	// Direction and Amount apply to scroll. Amount counts wheel steps.
	Direction ScrollDirection `json:"direction,omitempty"`
	Amount    int             `json:"amount,omitempty"`

	// DurationSec applies to hold_key and wait, in seconds.
	DurationSec float64 `json:"duration,omitempty"`

	// Modifier is an optional key held for the duration of a click or
	// scroll (e.g. "ctrl" for ctrl+click).
	Modifier string `json:"modifier,omitempty"`
}
