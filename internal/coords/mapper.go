// File: internal/coords/mapper.go

// Package coords maps between the coordinate space the model reasons in and
// the real pixels of the remote viewport. Two policies exist: "scale"
// presents the model with a downscaled standard resolution and maps its
// coordinates back up, and "normalized" accepts coordinates on a fixed
// 0..1000 grid regardless of viewport size.
package coords

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// Policy selects the model coordinate space.
type Policy string

const (
	// PolicyScale maps model coordinates from a standard target resolution
	// (XGA/WXGA/FWXGA) back to the actual viewport.
	PolicyScale Policy = "scale"
	// PolicyNormalized maps model coordinates from a 0..1000 grid.
	PolicyNormalized Policy = "normalized"
)

// MaxNormalized is the exclusive-ish upper bound of the normalized grid:
// valid normalized coordinates lie in [0, MaxNormalized].
const MaxNormalized = 1000

// aspectTolerance is the maximum aspect-ratio deviation for a scale target
// to be considered a match for the actual viewport.
const aspectTolerance = 0.02

// scaleTargets are the candidate resolutions for PolicyScale, tried in
// order. A target applies only when the viewport is strictly larger.
var scaleTargets = []schemas.Viewport{
	{Width: 1024, Height: 768},  // XGA 4:3
	{Width: 1280, Height: 800},  // WXGA 16:10
	{Width: 1366, Height: 768},  // FWXGA ~16:9
}

// OutOfBoundsError reports a model coordinate outside its declared space.
// The loop treats it as recoverable: the model is told and may retry.
type OutOfBoundsError struct {
	X, Y   int
	Bounds schemas.Viewport
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("coordinate (%d, %d) outside bounds %dx%d",
		e.X, e.Y, e.Bounds.Width, e.Bounds.Height)
}

// Mapper converts coordinates between model space and screen pixels. It is
// immutable after construction and safe for concurrent use.
type Mapper struct {
	actual schemas.Viewport
	model  schemas.Viewport
	policy Policy
	strict bool
	logger *zap.Logger
}

// NewMapper builds a mapper for the given viewport and policy. With strict
// set, out-of-range input is an error; otherwise it is clamped into range
// and logged.
func NewMapper(actual schemas.Viewport, policy Policy, strict bool, logger *zap.Logger) (*Mapper, error) {
	if actual.Width <= 0 || actual.Height <= 0 {
		return nil, fmt.Errorf("coords: degenerate viewport %dx%d", actual.Width, actual.Height)
	}

	m := &Mapper{
		actual: actual,
		policy: policy,
		strict: strict,
		logger: logger.Named("coords"),
	}

	switch policy {
	case PolicyScale:
		m.model = pickScaleTarget(actual)
		if m.model != actual {
			m.logger.Debug("Scaling model coordinate space to standard target.",
				zap.Int("actual_width", actual.Width), zap.Int("actual_height", actual.Height),
				zap.Int("target_width", m.model.Width), zap.Int("target_height", m.model.Height))
		}
	case PolicyNormalized:
		m.model = schemas.Viewport{Width: MaxNormalized, Height: MaxNormalized}
	default:
		return nil, fmt.Errorf("coords: unknown policy %q", policy)
	}

	return m, nil
}

// pickScaleTarget returns the first standard target whose aspect ratio is
// within tolerance of the viewport's and which is strictly smaller than the
// viewport. When none applies the model space is the viewport itself.
func pickScaleTarget(actual schemas.Viewport) schemas.Viewport {
	ar := actual.AspectRatio()
	for _, t := range scaleTargets {
		if math.Abs(ar-t.AspectRatio()) > aspectTolerance {
			continue
		}
		if actual.Width > t.Width || actual.Height > t.Height {
			return t
		}
	}
	return actual
}

// ModelViewport returns the dimensions the model should be told it is
// operating on. Under PolicyNormalized this is the actual viewport; the
// normalized grid is a coordinate convention, not a resolution.
func (m *Mapper) ModelViewport() schemas.Viewport {
	if m.policy == PolicyNormalized {
		return m.actual
	}
	return m.model
}

// Scaled reports whether model space differs from the actual viewport.
func (m *Mapper) Scaled() bool {
	return m.policy == PolicyNormalized || m.model != m.actual
}

// ToPixels converts a model-space coordinate to actual viewport pixels.
func (m *Mapper) ToPixels(x, y int) (schemas.Point, error) {
	bounds := m.modelBounds()
	cx, cy, err := m.checkRange(x, y, bounds)
	if err != nil {
		return schemas.Point{}, err
	}

	px := scaleRound(cx, bounds.Width, m.actual.Width)
	py := scaleRound(cy, bounds.Height, m.actual.Height)
	return clampPoint(schemas.Point{X: px, Y: py}, m.actual), nil
}

// ToModelSpace converts an actual-pixel coordinate back into model space.
// Round-tripping through ToPixels stays within one pixel.
func (m *Mapper) ToModelSpace(p schemas.Point) schemas.Point {
	bounds := m.modelBounds()
	mx := scaleRound(p.X, m.actual.Width, bounds.Width)
	my := scaleRound(p.Y, m.actual.Height, bounds.Height)
	return clampPoint(schemas.Point{X: mx, Y: my}, bounds)
}

// modelBounds is the space incoming model coordinates live in.
func (m *Mapper) modelBounds() schemas.Viewport {
	return m.model
}

func (m *Mapper) checkRange(x, y int, bounds schemas.Viewport) (int, int, error) {
	inRange := x >= 0 && y >= 0 && x <= bounds.Width && y <= bounds.Height
	if inRange {
		return x, y, nil
	}
	if m.strict {
		return 0, 0, &OutOfBoundsError{X: x, Y: y, Bounds: bounds}
	}
	cx := clampInt(x, 0, bounds.Width)
	cy := clampInt(y, 0, bounds.Height)
	m.logger.Warn("Clamped out-of-range model coordinate.",
		zap.Int("x", x), zap.Int("y", y),
		zap.Int("clamped_x", cx), zap.Int("clamped_y", cy),
		zap.Int("bound_width", bounds.Width), zap.Int("bound_height", bounds.Height))
	return cx, cy, nil
}

// scaleRound maps v from a space of size from to a space of size to using
// round-half-away-from-zero.
func scaleRound(v, from, to int) int {
	if from == 0 {
		return 0
	}
	return int(math.Round(float64(v) * float64(to) / float64(from)))
}

func clampPoint(p schemas.Point, v schemas.Viewport) schemas.Point {
	return schemas.Point{
		X: clampInt(p.X, 0, v.Width-1),
		Y: clampInt(p.Y, 0, v.Height-1),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
