// File: api/schemas/commands.go
package schemas

import "time"

// CommandType enumerates the primitive browser commands a translated action
// expands into. One Action may produce several Commands; they execute in
// order and the sequence is atomic from the model's point of view.
type CommandType string

const (
	CmdMoveMouse         CommandType = "move_mouse"
	CmdClickMouse        CommandType = "click_mouse"
	CmdDragMouse         CommandType = "drag_mouse"
	CmdScroll            CommandType = "scroll"
	CmdPressKey          CommandType = "press_key"
	CmdTypeText          CommandType = "type_text"
	CmdWait              CommandType = "wait"
	CmdNavigate          CommandType = "navigate"
	CmdGoBack            CommandType = "go_back"
	CmdGoForward         CommandType = "go_forward"
	CmdCaptureScreenshot CommandType = "capture_screenshot"
)

// MouseButton identifies the button for click commands.
type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// Command is a single primitive instruction for the session gateway. All
// coordinates are real viewport pixels; model-space mapping has already
// happened by the time a Command exists.
type Command struct {
	Type CommandType `json:"type"`

	// Point is the pointer position for move, click and scroll commands.
	Point Point `json:"point,omitempty"`

	// Path holds the waypoints for drag_mouse, at least two entries.
	Path []Point `json:"path,omitempty"`

	Button     MouseButton `json:"button,omitempty"`
	ClickCount int         `json:"click_count,omitempty"`

	// DeltaX and DeltaY are the wheel deltas in pixels for scroll.
	DeltaX float64 `json:"delta_x,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`

	// Keys is the chord for press_key: pressed in order, released in
	// reverse. For clicks and scrolls it carries modifier keys held around
	// the event.
	Keys []string `json:"keys,omitempty"`

	// Text is the chunk for type_text or the URL for navigate.
	Text string `json:"text,omitempty"`

	// Hold is how long wait pauses, or how long press_key keeps the chord
	// down before releasing.
	Hold time.Duration `json:"hold,omitempty"`

	// KeyDelay is the per-character cadence for type_text.
	KeyDelay time.Duration `json:"key_delay,omitempty"`
}
