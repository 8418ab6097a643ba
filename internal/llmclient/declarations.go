// File: internal/llmclient/declarations.go
package llmclient

import (
	"fmt"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// functionDeclaration mirrors the Gemini tool schema format.
type functionDeclaration struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  *paramSchema `json:"parameters,omitempty"`
}

type paramSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]*paramField `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

type paramField struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Items       *paramField `json:"items,omitempty"`
}

func coordinateField(vp schemas.Viewport) *paramField {
	return &paramField{
		Type: "array",
		Description: fmt.Sprintf(
			"Target as [x, y]. The screen is %d pixels wide and %d pixels tall.",
			vp.Width, vp.Height),
		Items: &paramField{Type: "integer"},
	}
}

// actionDeclarations builds the tool declarations for the full action
// vocabulary, with coordinate descriptions bound to the viewport the model
// is shown.
func actionDeclarations(vp schemas.Viewport) []functionDeclaration {
	coord := coordinateField(vp)
	durationField := &paramField{
		Type:        "number",
		Description: "Duration in seconds, between 0 and 100.",
	}

	return []functionDeclaration{
		{
			Name:        string(schemas.ActionScreenshot),
			Description: "Capture a screenshot of the current page.",
		},
		{
			Name:        string(schemas.ActionLeftClick),
			Description: "Left-click at the coordinate, or at the current pointer position when omitted.",
			Parameters: &paramSchema{
				Type: "object",
				Properties: map[string]*paramField{
					"coordinate": coord,
					"modifier":   {Type: "string", Description: "Optional modifier key held during the click (ctrl, shift, alt, cmd)."},
				},
			},
		},
		{
			Name:        string(schemas.ActionRightClick),
			Description: "Right-click at the coordinate.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"coordinate": coord},
			},
		},
		{
			Name:        string(schemas.ActionMiddleClick),
			Description: "Middle-click at the coordinate.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"coordinate": coord},
			},
		},
		{
			Name:        string(schemas.ActionDoubleClick),
			Description: "Double-click at the coordinate.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"coordinate": coord},
			},
		},
		{
			Name:        string(schemas.ActionTripleClick),
			Description: "Triple-click at the coordinate, selecting a full line of text.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"coordinate": coord},
			},
		},
		{
			Name:        string(schemas.ActionMouseMove),
			Description: "Move the pointer to the coordinate without clicking.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"coordinate": coord},
				Required:   []string{"coordinate"},
			},
		},
		{
			Name:        string(schemas.ActionDrag),
			Description: "Press the left button, drag along the path (or from the current position to the coordinate), and release.",
			Parameters: &paramSchema{
				Type: "object",
				Properties: map[string]*paramField{
					"coordinate": coord,
					"path": {
						Type:        "array",
						Description: "Waypoints as [[x, y], ...], at least two points.",
						Items:       &paramField{Type: "array", Items: &paramField{Type: "integer"}},
					},
				},
			},
		},
		{
			Name:        string(schemas.ActionScroll),
			Description: "Scroll the page in a direction. Each unit scrolls about 100 pixels.",
			Parameters: &paramSchema{
				Type: "object",
				Properties: map[string]*paramField{
					"direction":  {Type: "string", Enum: []string{"up", "down", "left", "right"}},
					"amount":     {Type: "integer", Description: "Scroll units, default 3."},
					"coordinate": coord,
				},
				Required: []string{"direction"},
			},
		},
		{
			Name:        string(schemas.ActionTypeText),
			Description: "Type literal text at the current focus.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"text": {Type: "string"}},
				Required:   []string{"text"},
			},
		},
		{
			Name:        string(schemas.ActionKey),
			Description: "Press a key or combination, e.g. \"enter\" or \"ctrl+shift+t\".",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"text": {Type: "string"}},
				Required:   []string{"text"},
			},
		},
		{
			Name:        string(schemas.ActionHoldKey),
			Description: "Hold a single key down for a duration.",
			Parameters: &paramSchema{
				Type: "object",
				Properties: map[string]*paramField{
					"text":     {Type: "string", Description: "The key to hold."},
					"duration": durationField,
				},
				Required: []string{"text", "duration"},
			},
		},
		{
			Name:        string(schemas.ActionWait),
			Description: "Pause before the next observation, e.g. while a page loads.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"duration": durationField},
				Required:   []string{"duration"},
			},
		},
		{
			Name:        string(schemas.ActionNavigate),
			Description: "Navigate the page to a URL.",
			Parameters: &paramSchema{
				Type:       "object",
				Properties: map[string]*paramField{"url": {Type: "string"}},
				Required:   []string{"url"},
			},
		},
		{
			Name:        string(schemas.ActionBack),
			Description: "Go back in browser history.",
		},
		{
			Name:        string(schemas.ActionForward),
			Description: "Go forward in browser history.",
		},
	}
}
