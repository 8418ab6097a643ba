// File: internal/keymap/keymap_test.go
package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ctrl", "Control"},
		{"CTRL", "Control"},
		{"Control", "Control"},
		{"cmd", "Meta"},
		{"super", "Meta"},
		{"return", "Enter"},
		{"kp_enter", "Enter"},
		{"esc", "Escape"},
		{"page_down", "PageDown"},
		{"Prior", "PageUp"},
		{"up", "ArrowUp"},
		{"arrowdown", "ArrowDown"},
		{"space", " "},
		{"minus", "-"},
		{"bracketleft", "["},
		{"f1", "F1"},
		{"F12", "F12"},
		{"f24", "F24"},
		{"f25", "f25"}, // past the function-key range, passes through
		{"a", "a"},
		{"A", "A"},
		{"7", "7"},
		{"Escape", "Escape"},
		{"UnknownKeyName", "UnknownKeyName"},
		{"  tab  ", "Tab"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestSplitCombo(t *testing.T) {
	tests := []struct {
		name  string
		combo string
		want  []string
	}{
		{"two modifiers and a letter", "ctrl+shift+a", []string{"Control", "Shift", "A"}},
		{"shifted letter uppercased", "shift+ctrl+t", []string{"Shift", "Control", "T"}},
		{"unshifted letter stays lowercase", "ctrl+a", []string{"Control", "a"}},
		{"single key", "enter", []string{"Enter"}},
		{"mac style", "cmd+l", []string{"Meta", "l"}},
		{"function key", "alt+F4", []string{"Alt", "F4"}},
		{"literal plus", "ctrl++", []string{"Control", "+"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitCombo(tc.combo))
		})
	}
}

func TestIsModifier(t *testing.T) {
	assert.True(t, IsModifier("Control"))
	assert.True(t, IsModifier("Meta"))
	assert.False(t, IsModifier("Enter"))
	assert.False(t, IsModifier("a"))
}
