package domain

import "fmt"

// Style is a button's style and text record as the host stores it
// (text, color, bgcolor, size, alignment, ...). Records owned by the host
// must never be mutated; the engine only keeps deep copies.
type Style map[string]any

// Well-known style keys.
const (
	StyleKeyText    = "text"
	StyleKeyKind    = "style"
	StyleKeyColor   = "color"
	StyleKeyBgColor = "bgcolor"

	// StyleKindPNG is the style kind of a regular drawable button.
	StyleKindPNG = "png"
)

// Text returns the raw (unexpanded) text template.
func (s Style) Text() string {
	return s.stringValue(StyleKeyText)
}

// Kind returns the style kind, e.g. "png" or "pageup".
func (s Style) Kind() string {
	return s.stringValue(StyleKeyKind)
}

func (s Style) stringValue(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", v)
}
