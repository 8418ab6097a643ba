// File: internal/translate/parse.go
package translate

import (
	"math"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// callArgs is the permissive wire shape of a model function call. Models
// are inconsistent about field names (url vs text, amount vs
// scroll_amount, x/y vs coordinate), so decoding accepts the union and
// validation settles the result.
type callArgs struct {
	Coordinate   []float64   `json:"coordinate"`
	X            *float64    `json:"x"`
	Y            *float64    `json:"y"`
	Path         [][]float64 `json:"path"`
	Text         string      `json:"text"`
	URL          string      `json:"url"`
	Keys         string      `json:"keys"`
	Direction    string      `json:"direction"`
	Amount       int         `json:"amount"`
	ScrollAmount int         `json:"scroll_amount"`
	Duration     float64     `json:"duration"`
	Modifier     string      `json:"modifier"`
}

var knownActions = func() map[schemas.ActionType]bool {
	m := make(map[schemas.ActionType]bool, len(schemas.KnownActionTypes))
	for _, a := range schemas.KnownActionTypes {
		m[a] = true
	}
	return m
}()

// ParseCall decodes a raw model function call into a validated Action. The
// action set is closed: an unknown name is an InvalidActionError, which the
// loop reports back to the model instead of dispatching anything.
func ParseCall(name string, rawArgs []byte) (schemas.Action, error) {
	atype := schemas.ActionType(name)
	if !knownActions[atype] {
		return schemas.Action{}, &InvalidActionError{Action: name, Reason: "unknown action type"}
	}

	var args callArgs
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return schemas.Action{}, &InvalidActionError{Action: name, Field: "args", Reason: err.Error()}
		}
	}

	action := schemas.Action{
		Type:        atype,
		Text:        args.Text,
		Direction:   schemas.ScrollDirection(args.Direction),
		Amount:      args.Amount,
		DurationSec: args.Duration,
		Modifier:    args.Modifier,
	}
	if action.Amount == 0 {
		action.Amount = args.ScrollAmount
	}
	if action.Text == "" && args.URL != "" {
		action.Text = args.URL
	}
	if action.Text == "" && args.Keys != "" {
		action.Text = args.Keys
	}

	coord, err := decodeCoordinate(atype, args)
	if err != nil {
		return schemas.Action{}, err
	}
	action.Coordinate = coord

	if len(args.Path) > 0 {
		path := make([]schemas.Point, 0, len(args.Path))
		for i, wp := range args.Path {
			if len(wp) != 2 {
				return schemas.Action{}, invalidf(atype, "path", "point %d has %d elements, want 2", i, len(wp))
			}
			path = append(path, schemas.Point{X: roundInt(wp[0]), Y: roundInt(wp[1])})
		}
		action.Path = path
	}

	return action, nil
}

func decodeCoordinate(atype schemas.ActionType, args callArgs) (*schemas.Point, error) {
	switch {
	case len(args.Coordinate) == 2:
		return &schemas.Point{X: roundInt(args.Coordinate[0]), Y: roundInt(args.Coordinate[1])}, nil
	case len(args.Coordinate) != 0:
		return nil, invalidf(atype, "coordinate", "has %d elements, want 2", len(args.Coordinate))
	case args.X != nil && args.Y != nil:
		return &schemas.Point{X: roundInt(*args.X), Y: roundInt(*args.Y)}, nil
	case args.X != nil || args.Y != nil:
		return nil, invalidf(atype, "coordinate", "x and y must be given together")
	}
	return nil, nil
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
