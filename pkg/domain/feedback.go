package domain

// FeedbackType is the closed set of computed outputs the engine evaluates.
type FeedbackType string

const (
	FeedbackBankStyle        FeedbackType = "bank_style"
	FeedbackBankPushed       FeedbackType = "bank_pushed"
	FeedbackVariableValue    FeedbackType = "variable_value"
	FeedbackVariableVariable FeedbackType = "variable_variable"
	FeedbackSurfaceOnPage    FeedbackType = "surface_on_page"
	FeedbackInstanceStatus   FeedbackType = "instance_status"
)

// CompareOp is the comparison used by variable feedbacks.
type CompareOp string

const (
	OpEqual       CompareOp = "eq"
	OpNotEqual    CompareOp = "ne"
	OpGreaterThan CompareOp = "gt"
	OpLessThan    CompareOp = "lt"
)

// FeedbackOptions is the typed form of a feedback's option map.
type FeedbackOptions struct {
	Page               string `mapstructure:"page"`
	PageVariable       string `mapstructure:"pageVariable"`
	Bank               string `mapstructure:"bank"`
	BankVariable       string `mapstructure:"bankVariable"`
	Controller         string `mapstructure:"controller"`
	ControllerVariable string `mapstructure:"controllerVariable"`

	Variable  string    `mapstructure:"variable"`
	Variable2 string    `mapstructure:"variable2"`
	Op        CompareOp `mapstructure:"op"`
	Value     string    `mapstructure:"value"`

	InstanceID string `mapstructure:"instance_id"`
	ErrorFg    int    `mapstructure:"error_fg"`
	ErrorBg    int    `mapstructure:"error_bg"`
	WarningFg  int    `mapstructure:"warning_fg"`
	WarningBg  int    `mapstructure:"warning_bg"`
	OkFg       int    `mapstructure:"ok_fg"`
	OkBg       int    `mapstructure:"ok_bg"`
	DisabledFg int    `mapstructure:"disabled_fg"`
	DisabledBg int    `mapstructure:"disabled_bg"`
}

// DefaultFeedbackOptions returns the options a feedback of type t starts
// from before its own options are decoded over them.
func DefaultFeedbackOptions(t FeedbackType) FeedbackOptions {
	if t != FeedbackInstanceStatus {
		return FeedbackOptions{}
	}
	return FeedbackOptions{
		InstanceID: AllInstances,
		OkFg:       RGB(255, 255, 255),
		OkBg:       RGB(0, 200, 0),
		WarningFg:  RGB(0, 0, 0),
		WarningBg:  RGB(255, 255, 0),
		ErrorFg:    RGB(255, 255, 255),
		ErrorBg:    RGB(200, 0, 0),
		DisabledFg: RGB(153, 153, 153),
		DisabledBg: RGB(64, 64, 64),
	}
}

// StatusColors returns the color and bgcolor style entries for state.
func (o FeedbackOptions) StatusColors(state InstanceState) Style {
	fg, bg := o.DisabledFg, o.DisabledBg
	switch state {
	case InstanceError:
		fg, bg = o.ErrorFg, o.ErrorBg
	case InstanceWarning:
		fg, bg = o.WarningFg, o.WarningBg
	case InstanceOK:
		fg, bg = o.OkFg, o.OkBg
	}
	return Style{StyleKeyColor: fg, StyleKeyBgColor: bg}
}

// Field builds the FieldReference for kind from the options.
func (o FeedbackOptions) Field(kind FieldKind) FieldReference {
	switch kind {
	case FieldPage:
		return NewFieldReference(kind, o.Page, o.PageVariable)
	case FieldBank:
		return NewFieldReference(kind, o.Bank, o.BankVariable)
	default:
		return NewFieldReference(kind, o.Controller, o.ControllerVariable)
	}
}

// Feedback is one computed output instance placed on a button.
type Feedback struct {
	ID      string         `json:"id" yaml:"id"`
	Type    FeedbackType   `json:"type" yaml:"type"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}
