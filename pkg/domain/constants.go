package domain

import (
	"fmt"
	"strings"
)

// SurfaceID identifies a control surface, usually by serial number.
type SurfaceID string

// PageRef is an opaque page identifier.
type PageRef string

// Placeholder and directive values accepted in raw fields.
const (
	// CurrentContext is the page/bank value meaning "this page" or "this button".
	CurrentContext = "0"

	// UseVariable marks a field whose value must be read from a variable.
	UseVariable = "variable"

	// SelfSurface is the controller value meaning "the surface that originated the event".
	SelfSurface SurfaceID = "self"

	// AnySurface matches every known surface in surface_on_page feedbacks.
	AnySurface SurfaceID = "any"

	// PageBack and PageForward are navigation directives. They are accepted
	// as input only and are never stored in a History.
	PageBack    PageRef = "back"
	PageForward PageRef = "forward"
)

// Limits and markers.
const (
	// DefaultHistoryLimit is the number of entries kept per surface.
	DefaultHistoryLimit = 100

	// RecursionMarker replaces a display text that references its own variable.
	RecursionMarker = "$RE"

	// InternalNamespace is the variable namespace owned by this module.
	InternalNamespace = "internal"

	// MinPage and MaxPage bound inc_page/dec_page wrap-around.
	MinPage = 1
	MaxPage = 99
)

// IsDirective reports whether p is a back/forward directive rather than a page.
func (p PageRef) IsDirective() bool {
	return p == PageBack || p == PageForward
}

// BankKey addresses one button: a bank on a page.
type BankKey struct {
	Page string `json:"page"`
	Bank string `json:"bank"`
}

func (k BankKey) String() string {
	return k.Page + "_" + k.Bank
}

// DisplayVariable returns the name of the variable that publishes the
// resolved text of this button, e.g. "b_text_1_5".
func (k BankKey) DisplayVariable() string {
	return "b_text_" + k.String()
}

// VariableRef is a structured reference to an external value.
type VariableRef struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
}

// ParseVariableRef splits the "namespace:name" form used by hosts.
// Only the first colon separates, so names may contain colons.
func ParseVariableRef(s string) (VariableRef, error) {
	ns, name, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || ns == "" || name == "" {
		return VariableRef{}, fmt.Errorf("invalid variable reference %q: expected namespace:name", s)
	}
	return VariableRef{Namespace: ns, Name: name}, nil
}

// IsZero reports whether the reference is unset.
func (r VariableRef) IsZero() bool {
	return r.Namespace == "" && r.Name == ""
}

func (r VariableRef) String() string {
	if r.IsZero() {
		return ""
	}
	return r.Namespace + ":" + r.Name
}
