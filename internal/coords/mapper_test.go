// File: internal/coords/mapper_test.go
package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

func newTestMapper(t *testing.T, vp schemas.Viewport, policy Policy, strict bool) *Mapper {
	t.Helper()
	m, err := NewMapper(vp, policy, strict, zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestNewMapperValidation(t *testing.T) {
	_, err := NewMapper(schemas.Viewport{Width: 0, Height: 768}, PolicyScale, false, zap.NewNop())
	assert.Error(t, err, "degenerate viewport must be rejected")

	_, err = NewMapper(schemas.Viewport{Width: 1024, Height: 768}, Policy("bogus"), false, zap.NewNop())
	assert.Error(t, err, "unknown policy must be rejected")
}

func TestNormalizedToPixels(t *testing.T) {
	m := newTestMapper(t, schemas.Viewport{Width: 1280, Height: 768}, PolicyNormalized, true)

	p, err := m.ToPixels(500, 500)
	require.NoError(t, err)
	assert.Equal(t, schemas.Point{X: 640, Y: 384}, p)

	p, err = m.ToPixels(0, 0)
	require.NoError(t, err)
	assert.Equal(t, schemas.Point{X: 0, Y: 0}, p)

	// The far edge maps onto the last addressable pixel.
	p, err = m.ToPixels(1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, schemas.Point{X: 1279, Y: 767}, p)
}

func TestNormalizedStrictRejectsOutOfRange(t *testing.T) {
	m := newTestMapper(t, schemas.Viewport{Width: 1280, Height: 768}, PolicyNormalized, true)

	_, err := m.ToPixels(1001, 500)
	var oob *OutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 1001, oob.X)

	_, err = m.ToPixels(500, -1)
	assert.ErrorAs(t, err, &oob)
}

func TestNormalizedLenientClamps(t *testing.T) {
	m := newTestMapper(t, schemas.Viewport{Width: 1000, Height: 1000}, PolicyNormalized, false)

	p, err := m.ToPixels(1500, -20)
	require.NoError(t, err)
	assert.Equal(t, schemas.Point{X: 999, Y: 0}, p)
}

func TestScalePolicyPicksStandardTarget(t *testing.T) {
	tests := []struct {
		name   string
		actual schemas.Viewport
		want   schemas.Viewport
	}{
		{"4:3 above XGA scales to XGA", schemas.Viewport{Width: 2048, Height: 1536}, schemas.Viewport{Width: 1024, Height: 768}},
		{"16:10 above WXGA scales to WXGA", schemas.Viewport{Width: 1920, Height: 1200}, schemas.Viewport{Width: 1280, Height: 800}},
		{"16:9 above FWXGA scales to FWXGA", schemas.Viewport{Width: 1920, Height: 1080}, schemas.Viewport{Width: 1366, Height: 768}},
		{"exact XGA stays unscaled", schemas.Viewport{Width: 1024, Height: 768}, schemas.Viewport{Width: 1024, Height: 768}},
		{"smaller than every target stays unscaled", schemas.Viewport{Width: 800, Height: 600}, schemas.Viewport{Width: 800, Height: 600}},
		{"odd aspect ratio stays unscaled", schemas.Viewport{Width: 2000, Height: 700}, schemas.Viewport{Width: 2000, Height: 700}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMapper(t, tc.actual, PolicyScale, true)
			assert.Equal(t, tc.want, m.ModelViewport())
		})
	}
}

func TestScaleToPixels(t *testing.T) {
	// 1920x1080 presents as 1366x768 to the model.
	m := newTestMapper(t, schemas.Viewport{Width: 1920, Height: 1080}, PolicyScale, true)

	p, err := m.ToPixels(683, 384)
	require.NoError(t, err)
	assert.InDelta(t, 960, p.X, 1)
	assert.InDelta(t, 540, p.Y, 1)

	_, err = m.ToPixels(1500, 100)
	var oob *OutOfBoundsError
	assert.ErrorAs(t, err, &oob, "coordinates past the scaled space are rejected")
}

func TestRoundTripWithinOnePixel(t *testing.T) {
	mappers := map[string]*Mapper{
		"scale":      newTestMapper(t, schemas.Viewport{Width: 1920, Height: 1080}, PolicyScale, true),
		"normalized": newTestMapper(t, schemas.Viewport{Width: 1280, Height: 768}, PolicyNormalized, true),
		"identity":   newTestMapper(t, schemas.Viewport{Width: 1024, Height: 768}, PolicyScale, true),
	}

	for name, m := range mappers {
		t.Run(name, func(t *testing.T) {
			bounds := m.modelBounds()
			for _, mp := range []schemas.Point{
				{X: 0, Y: 0},
				{X: bounds.Width / 2, Y: bounds.Height / 2},
				{X: bounds.Width - 1, Y: bounds.Height - 1},
				{X: 17, Y: 311},
			} {
				px, err := m.ToPixels(mp.X, mp.Y)
				require.NoError(t, err)
				back := m.ToModelSpace(px)
				assert.InDelta(t, mp.X, back.X, 1)
				assert.InDelta(t, mp.Y, back.Y, 1)
			}
		})
	}
}

func TestIdentityMappingIsExact(t *testing.T) {
	m := newTestMapper(t, schemas.Viewport{Width: 1024, Height: 768}, PolicyScale, true)
	p, err := m.ToPixels(512, 384)
	require.NoError(t, err)
	assert.Equal(t, schemas.Point{X: 512, Y: 384}, p)
	assert.Equal(t, schemas.Point{X: 512, Y: 384}, m.ToModelSpace(p))
}
