package domain

// FieldKind names the logical field being resolved.
type FieldKind string

const (
	FieldPage       FieldKind = "page"
	FieldBank       FieldKind = "bank"
	FieldController FieldKind = "controller"
)

// FieldReference is one raw field of a command or feedback.
// It is built fresh for each resolution and never persisted.
type FieldReference struct {
	Kind FieldKind

	// Raw is the literal value, CurrentContext, SelfSurface or UseVariable.
	Raw string

	// Variable is read when Raw == UseVariable.
	Variable VariableRef

	// Template is expanded through the variable parser when Raw == UseVariable
	// and Variable is unset, e.g. "$(internal:custom_page)".
	Template string
}

// UsesVariable reports whether the field is indirected through a variable.
func (f FieldReference) UsesVariable() bool {
	return f.Raw == UseVariable
}

// ContextExtras describes the button press that triggered a command, when
// there was one. A nil *ContextExtras means the command has no such context.
type ContextExtras struct {
	Page     string    `json:"page" yaml:"page" mapstructure:"page"`
	Bank     string    `json:"bank" yaml:"bank" mapstructure:"bank"`
	DeviceID SurfaceID `json:"device_id" yaml:"device_id" mapstructure:"device_id"`
}
