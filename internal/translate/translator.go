// File: internal/translate/translator.go

// Package translate expands model actions into primitive browser commands.
// It owns every validation rule for the action vocabulary: anything that
// reaches the session gateway has already been bounds-checked, normalized
// and defaulted here.
package translate

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/coords"
	"github.com/xkilldash9x/webpilot-cli/internal/keymap"
)

const (
	// TypingChunkSize is the maximum characters per type_text command.
	// Long strings are split so each chunk's effect is observable.
	TypingChunkSize = 50
	// TypingKeyDelay is the per-character cadence while typing.
	TypingKeyDelay = 12 * time.Millisecond
	// interChunkPause separates consecutive typing chunks.
	interChunkPause = 10 * time.Millisecond

	// ScrollStepPixels is the wheel delta for one scroll unit.
	ScrollStepPixels = 100
	// defaultScrollAmount is used when the model omits the amount.
	defaultScrollAmount = 3

	// MaxHoldSeconds caps hold_key and wait durations. Values past it are
	// rejected, never silently clamped.
	MaxHoldSeconds = 100
)

// InvalidActionError reports a malformed or out-of-vocabulary action. The
// loop feeds it back to the model as a tool error rather than aborting.
type InvalidActionError struct {
	Action string
	Field  string
	Reason string
}

func (e *InvalidActionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid action %q: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("invalid action %q: field %q: %s", e.Action, e.Field, e.Reason)
}

func invalidf(action schemas.ActionType, field, format string, args ...any) error {
	return &InvalidActionError{Action: string(action), Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Context is the per-turn state a translation depends on.
type Context struct {
	Viewport schemas.Viewport
	// LastPointer is the most recent pointer position, nil before the
	// first positioned action of a session.
	LastPointer *schemas.Point
}

// Translation is the expanded command sequence plus the pointer position it
// leaves behind, when the action moves the pointer.
type Translation struct {
	Commands []schemas.Command
	Pointer  *schemas.Point
}

// coordinateActions and textActions close the field vocabulary per action.
// A field outside its action's vocabulary is rejected, never dropped.
var coordinateActions = map[schemas.ActionType]bool{
	schemas.ActionLeftClick:   true,
	schemas.ActionRightClick:  true,
	schemas.ActionMiddleClick: true,
	schemas.ActionDoubleClick: true,
	schemas.ActionTripleClick: true,
	schemas.ActionMouseMove:   true,
	schemas.ActionDrag:        true,
	schemas.ActionScroll:      true,
}

var textActions = map[schemas.ActionType]bool{
	schemas.ActionTypeText: true,
	schemas.ActionKey:      true,
	schemas.ActionHoldKey:  true,
	schemas.ActionNavigate: true,
}

func validateFields(action schemas.Action) error {
	if action.Coordinate != nil && !coordinateActions[action.Type] {
		return invalidf(action.Type, "coordinate", "not accepted for %s", action.Type)
	}
	if action.Text != "" && !textActions[action.Type] {
		return invalidf(action.Type, "text", "not accepted for %s", action.Type)
	}
	if len(action.Path) > 0 && action.Type != schemas.ActionDrag {
		return invalidf(action.Type, "path", "not accepted for %s", action.Type)
	}
	return nil
}

// Translator converts Actions into Command sequences using a coordinate
// mapper fixed at session start.
type Translator struct {
	mapper *coords.Mapper
	logger *zap.Logger
}

func New(mapper *coords.Mapper, logger *zap.Logger) *Translator {
	return &Translator{mapper: mapper, logger: logger.Named("translate")}
}

// Translate expands one action. Unless the action is itself a screenshot,
// the sequence ends with a capture so every action produces a fresh
// observation.
func (t *Translator) Translate(action schemas.Action, tctx Context) (*Translation, error) {
	if knownActions[action.Type] {
		if err := validateFields(action); err != nil {
			return nil, err
		}
	}

	var (
		res *Translation
		err error
	)

	switch action.Type {
	case schemas.ActionScreenshot:
		return &Translation{Commands: []schemas.Command{{Type: schemas.CmdCaptureScreenshot}}}, nil
	case schemas.ActionLeftClick:
		res, err = t.click(action, tctx, schemas.ButtonLeft, 1)
	case schemas.ActionRightClick:
		res, err = t.click(action, tctx, schemas.ButtonRight, 1)
	case schemas.ActionMiddleClick:
		res, err = t.click(action, tctx, schemas.ButtonMiddle, 1)
	case schemas.ActionDoubleClick:
		res, err = t.click(action, tctx, schemas.ButtonLeft, 2)
	case schemas.ActionTripleClick:
		res, err = t.click(action, tctx, schemas.ButtonLeft, 3)
	case schemas.ActionMouseMove:
		res, err = t.mouseMove(action, tctx)
	case schemas.ActionDrag:
		res, err = t.drag(action, tctx)
	case schemas.ActionScroll:
		res, err = t.scroll(action, tctx)
	case schemas.ActionTypeText:
		res, err = t.typeText(action)
	case schemas.ActionKey:
		res, err = t.keyCombo(action)
	case schemas.ActionHoldKey:
		res, err = t.holdKey(action)
	case schemas.ActionWait:
		res, err = t.wait(action)
	case schemas.ActionNavigate:
		res, err = t.navigate(action)
	case schemas.ActionBack:
		res = &Translation{Commands: []schemas.Command{{Type: schemas.CmdGoBack}}}
	case schemas.ActionForward:
		res = &Translation{Commands: []schemas.Command{{Type: schemas.CmdGoForward}}}
	default:
		return nil, invalidf(action.Type, "", "unknown action type")
	}

	if err != nil {
		return nil, err
	}
	res.Commands = append(res.Commands, schemas.Command{Type: schemas.CmdCaptureScreenshot})
	return res, nil
}

// resolveTarget maps the action's coordinate to pixels, falling back to the
// last pointer position and then the viewport center.
func (t *Translator) resolveTarget(action schemas.Action, tctx Context) (schemas.Point, error) {
	if action.Coordinate != nil {
		p, err := t.mapper.ToPixels(action.Coordinate.X, action.Coordinate.Y)
		if err != nil {
			return schemas.Point{}, err
		}
		return p, nil
	}
	if tctx.LastPointer != nil {
		return *tctx.LastPointer, nil
	}
	return tctx.Viewport.Center(), nil
}

func (t *Translator) modifierKeys(action schemas.Action) ([]string, error) {
	if action.Modifier == "" {
		return nil, nil
	}
	key := keymap.Normalize(action.Modifier)
	if !keymap.IsModifier(key) {
		return nil, invalidf(action.Type, "modifier", "%q is not a modifier key", action.Modifier)
	}
	return []string{key}, nil
}

func (t *Translator) click(action schemas.Action, tctx Context, button schemas.MouseButton, count int) (*Translation, error) {
	target, err := t.resolveTarget(action, tctx)
	if err != nil {
		return nil, err
	}
	mods, err := t.modifierKeys(action)
	if err != nil {
		return nil, err
	}

	cmds := []schemas.Command{
		{Type: schemas.CmdMoveMouse, Point: target},
		{Type: schemas.CmdClickMouse, Point: target, Button: button, ClickCount: count, Keys: mods},
	}
	return &Translation{Commands: cmds, Pointer: &target}, nil
}

func (t *Translator) mouseMove(action schemas.Action, tctx Context) (*Translation, error) {
	if action.Coordinate == nil {
		return nil, invalidf(action.Type, "coordinate", "required")
	}
	target, err := t.resolveTarget(action, tctx)
	if err != nil {
		return nil, err
	}
	return &Translation{
		Commands: []schemas.Command{{Type: schemas.CmdMoveMouse, Point: target}},
		Pointer:  &target,
	}, nil
}

func (t *Translator) drag(action schemas.Action, tctx Context) (*Translation, error) {
	var path []schemas.Point

	switch {
	case len(action.Path) > 0:
		if len(action.Path) < 2 {
			return nil, invalidf(action.Type, "path", "needs at least 2 points, got %d", len(action.Path))
		}
		path = make([]schemas.Point, 0, len(action.Path))
		for i, wp := range action.Path {
			p, err := t.mapper.ToPixels(wp.X, wp.Y)
			if err != nil {
				return nil, fmt.Errorf("path point %d: %w", i, err)
			}
			path = append(path, p)
		}
	case action.Coordinate != nil:
		// Destination only: drag from wherever the pointer is.
		dest, err := t.mapper.ToPixels(action.Coordinate.X, action.Coordinate.Y)
		if err != nil {
			return nil, err
		}
		start := tctx.Viewport.Center()
		if tctx.LastPointer != nil {
			start = *tctx.LastPointer
		}
		path = []schemas.Point{start, dest}
	default:
		return nil, invalidf(action.Type, "coordinate", "drag needs a destination or a path")
	}

	end := path[len(path)-1]
	return &Translation{
		Commands: []schemas.Command{{Type: schemas.CmdDragMouse, Path: path}},
		Pointer:  &end,
	}, nil
}

func (t *Translator) scroll(action schemas.Action, tctx Context) (*Translation, error) {
	amount := action.Amount
	if amount == 0 {
		amount = defaultScrollAmount
	}
	if amount < 0 {
		return nil, invalidf(action.Type, "amount", "must be positive, got %d", amount)
	}

	var dx, dy float64
	step := float64(ScrollStepPixels * amount)
	switch action.Direction {
	case schemas.ScrollUp:
		dy = -step
	case schemas.ScrollDown:
		dy = step
	case schemas.ScrollLeft:
		dx = -step
	case schemas.ScrollRight:
		dx = step
	case "":
		return nil, invalidf(action.Type, "direction", "required")
	default:
		return nil, invalidf(action.Type, "direction", "unknown direction %q", action.Direction)
	}

	mods, err := t.modifierKeys(action)
	if err != nil {
		return nil, err
	}

	target, err := t.resolveTarget(action, tctx)
	if err != nil {
		return nil, err
	}

	cmds := []schemas.Command{
		{Type: schemas.CmdMoveMouse, Point: target},
		{Type: schemas.CmdScroll, Point: target, DeltaX: dx, DeltaY: dy, Keys: mods},
	}
	return &Translation{Commands: cmds, Pointer: &target}, nil
}

func (t *Translator) typeText(action schemas.Action) (*Translation, error) {
	if action.Text == "" {
		return nil, invalidf(action.Type, "text", "required")
	}

	var cmds []schemas.Command
	runes := []rune(action.Text)
	for start := 0; start < len(runes); start += TypingChunkSize {
		end := start + TypingChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if start > 0 {
			cmds = append(cmds, schemas.Command{Type: schemas.CmdWait, Hold: interChunkPause})
		}
		cmds = append(cmds, schemas.Command{
			Type:     schemas.CmdTypeText,
			Text:     string(runes[start:end]),
			KeyDelay: TypingKeyDelay,
		})
	}
	return &Translation{Commands: cmds}, nil
}

func (t *Translator) keyCombo(action schemas.Action) (*Translation, error) {
	if action.Text == "" {
		return nil, invalidf(action.Type, "text", "required")
	}
	keys := keymap.SplitCombo(action.Text)
	if len(keys) == 0 {
		return nil, invalidf(action.Type, "text", "no keys in combo %q", action.Text)
	}
	return &Translation{
		Commands: []schemas.Command{{Type: schemas.CmdPressKey, Keys: keys}},
	}, nil
}

func (t *Translator) holdKey(action schemas.Action) (*Translation, error) {
	if action.Text == "" {
		return nil, invalidf(action.Type, "text", "required")
	}
	hold, err := durationSeconds(action, action.DurationSec)
	if err != nil {
		return nil, err
	}
	return &Translation{
		Commands: []schemas.Command{{
			Type: schemas.CmdPressKey,
			Keys: []string{keymap.Normalize(action.Text)},
			Hold: hold,
		}},
	}, nil
}

func (t *Translator) wait(action schemas.Action) (*Translation, error) {
	hold, err := durationSeconds(action, action.DurationSec)
	if err != nil {
		return nil, err
	}
	return &Translation{
		Commands: []schemas.Command{{Type: schemas.CmdWait, Hold: hold}},
	}, nil
}

func durationSeconds(action schemas.Action, sec float64) (time.Duration, error) {
	if sec < 0 {
		return 0, invalidf(action.Type, "duration", "must be non-negative, got %v", sec)
	}
	if sec > MaxHoldSeconds {
		return 0, invalidf(action.Type, "duration", "must be at most %d seconds, got %v", MaxHoldSeconds, sec)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (t *Translator) navigate(action schemas.Action) (*Translation, error) {
	url := strings.TrimSpace(action.Text)
	if url == "" {
		return nil, invalidf(action.Type, "text", "url required")
	}
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	return &Translation{
		Commands: []schemas.Command{{Type: schemas.CmdNavigate, Text: url}},
	}, nil
}
