// File: internal/keymap/keymap.go

// Package keymap normalizes the key names models emit into the canonical
// DOM key values the CDP Input domain expects. Models mix conventions
// freely (xdotool names, lowercase DOM values, provider-specific aliases),
// so normalization is a synonym table plus a few structural rules.
package keymap

import (
	"regexp"
	"strings"
)

// synonyms maps lowercased aliases to canonical DOM key values. The table
// is the union of aliases observed in computer-use model output plus
// common xdotool names.
var synonyms = map[string]string{
	// Modifiers.
	"alt":     "Alt",
	"option":  "Alt",
	"opt":     "Alt",
	"ctrl":    "Control",
	"control": "Control",
	"shift":   "Shift",
	"meta":    "Meta",
	"super":   "Meta",
	"cmd":     "Meta",
	"command": "Meta",
	"win":     "Meta",
	"windows": "Meta",

	// Whitespace and editing.
	"enter":     "Enter",
	"return":    "Enter",
	"kp_enter":  "Enter",
	"tab":       "Tab",
	"space":     " ",
	"spacebar":  " ",
	"backspace": "Backspace",
	"delete":    "Delete",
	"del":       "Delete",
	"insert":    "Insert",
	"escape":    "Escape",
	"esc":       "Escape",

	// Arrows.
	"up":          "ArrowUp",
	"arrowup":     "ArrowUp",
	"down":        "ArrowDown",
	"arrowdown":   "ArrowDown",
	"left":        "ArrowLeft",
	"arrowleft":   "ArrowLeft",
	"right":       "ArrowRight",
	"arrowright":  "ArrowRight",

	// Navigation cluster.
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"page_up":   "PageUp",
	"prior":     "PageUp",
	"pagedown":  "PageDown",
	"page_down": "PageDown",
	"next":      "PageDown",

	// Locks and misc.
	"capslock":    "CapsLock",
	"caps_lock":   "CapsLock",
	"numlock":     "NumLock",
	"num_lock":    "NumLock",
	"scrolllock":  "ScrollLock",
	"printscreen": "PrintScreen",
	"print":       "PrintScreen",
	"pause":       "Pause",
	"menu":        "ContextMenu",
	"contextmenu": "ContextMenu",

	// X11 punctuation names.
	"minus":        "-",
	"plus":         "+",
	"equal":        "=",
	"underscore":   "_",
	"comma":        ",",
	"period":       ".",
	"slash":        "/",
	"backslash":    "\\",
	"semicolon":    ";",
	"colon":        ":",
	"apostrophe":   "'",
	"quotedbl":     "\"",
	"grave":        "`",
	"asciitilde":   "~",
	"bracketleft":  "[",
	"bracketright": "]",
}

// fkeyPattern matches function keys F1 through F24.
var fkeyPattern = regexp.MustCompile(`^f([1-9]|1[0-9]|2[0-4])$`)

// Normalize maps a model-emitted key name to its canonical DOM key value.
// Matching is case-insensitive. Single characters and unrecognized names
// pass through so new DOM values keep working without a table update.
func Normalize(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return trimmed
	}

	lower := strings.ToLower(trimmed)
	if canonical, ok := synonyms[lower]; ok {
		return canonical
	}
	if fkeyPattern.MatchString(lower) {
		return "F" + lower[1:]
	}
	// Single letters are case-significant DOM values; everything else keeps
	// the model's spelling.
	if len(trimmed) == 1 {
		return trimmed
	}
	return trimmed
}

// IsModifier reports whether the canonical key value is a modifier.
func IsModifier(key string) bool {
	switch key {
	case "Alt", "Control", "Shift", "Meta":
		return true
	}
	return false
}

// SplitCombo breaks a "ctrl+shift+a"-style combination into normalized key
// values, preserving order. Callers press in order and release in reverse.
// A trailing "+" denotes the literal plus key ("ctrl++" means Control and
// "+"). When Shift is part of the chord, single letters become their
// shifted DOM key value ("ctrl+shift+a" yields "A").
func SplitCombo(combo string) []string {
	parts := strings.Split(combo, "+")
	keys := make([]string, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			// An empty segment means two '+' in a row: the second is the
			// literal plus key. Only honor it once, at the end.
			if i == len(parts)-1 && len(keys) > 0 {
				keys = append(keys, "+")
			}
			continue
		}
		keys = append(keys, Normalize(part))
	}

	shifted := false
	for _, k := range keys {
		if k == "Shift" {
			shifted = true
			break
		}
	}
	if shifted {
		for i, k := range keys {
			if len(k) == 1 && k >= "a" && k <= "z" {
				keys[i] = strings.ToUpper(k)
			}
		}
	}
	return keys
}
