package domain

import (
	"strings"
	"time"
)

// CommandKind is the closed set of commands the dispatcher handles.
type CommandKind string

const (
	CommandSetPage        CommandKind = "set_page"
	CommandSetPageByIndex CommandKind = "set_page_byindex"
	CommandIncPage        CommandKind = "inc_page"
	CommandDecPage        CommandKind = "dec_page"

	CommandButtonPressRelease CommandKind = "button_pressrelease"
	CommandButtonPress        CommandKind = "button_press"
	CommandButtonRelease      CommandKind = "button_release"
	CommandButtonText         CommandKind = "button_text"
	CommandTextColor          CommandKind = "textcolor"
	CommandBgColor            CommandKind = "bgcolor"
	CommandPanicBank          CommandKind = "panic_bank"

	CommandPanic           CommandKind = "panic"
	CommandSetBrightness   CommandKind = "set_brightness"
	CommandLockoutDevice   CommandKind = "lockout_device"
	CommandUnlockoutDevice CommandKind = "unlockout_device"
	CommandLockoutAll      CommandKind = "lockout_all"
	CommandUnlockoutAll    CommandKind = "unlockout_all"
	CommandRescan          CommandKind = "rescan"

	CommandCustomVariableSetValue      CommandKind = "custom_variable_set_value"
	CommandCustomVariableSetExpression CommandKind = "custom_variable_set_expression"
	CommandCustomVariableStoreVariable CommandKind = "custom_variable_store_variable"

	CommandExec            CommandKind = "exec"
	CommandInstanceControl CommandKind = "instance_control"
	CommandAppExit         CommandKind = "app_exit"
	CommandAppRestart      CommandKind = "app_restart"
)

// DefaultExecTimeout applies to exec commands without a timeout option.
const DefaultExecTimeout = 5 * time.Second

// Category groups commands by which fields accept the "current context" placeholder.
type Category int

const (
	// CategoryNone commands never substitute page/bank from the triggering press.
	CategoryNone Category = iota
	// CategoryButton commands substitute both page and bank.
	CategoryButton
	// CategoryPage commands substitute the page only.
	CategoryPage
)

// Category returns the placeholder category of the command.
func (k CommandKind) Category() Category {
	switch k {
	case CommandButtonPressRelease, CommandButtonPress, CommandButtonRelease,
		CommandButtonText, CommandTextColor, CommandBgColor, CommandPanicBank:
		return CategoryButton
	case CommandSetPage, CommandSetPageByIndex, CommandIncPage, CommandDecPage:
		return CategoryPage
	default:
		return CategoryNone
	}
}

// CommandOptions is the typed form of a command's loose option map.
// Hosts store numbers and strings interchangeably, so decoding is weakly typed.
type CommandOptions struct {
	Page               string `mapstructure:"page"`
	PageVariable       string `mapstructure:"pageVariable"`
	Bank               string `mapstructure:"bank"`
	BankVariable       string `mapstructure:"bankVariable"`
	Controller         string `mapstructure:"controller"`
	ControllerVariable string `mapstructure:"controllerVariable"`

	Brightness int    `mapstructure:"brightness"`
	Label      string `mapstructure:"label"`
	Color      int    `mapstructure:"color"`
	Unlatch    bool   `mapstructure:"unlatch"`

	Name       string `mapstructure:"name"`
	Value      string `mapstructure:"value"`
	Expression string `mapstructure:"expression"`
	Variable   string `mapstructure:"variable"`

	Path string `mapstructure:"path"`
	// Timeout is in milliseconds; nil means DefaultExecTimeout.
	Timeout    *int   `mapstructure:"timeout"`
	InstanceID string `mapstructure:"instance_id"`
	Enable     bool   `mapstructure:"enable"`
}

// ExecTimeout returns the timeout of an exec command.
func (o CommandOptions) ExecTimeout() time.Duration {
	if o.Timeout == nil {
		return DefaultExecTimeout
	}
	return time.Duration(*o.Timeout) * time.Millisecond
}

// Field builds the FieldReference for kind from the options.
func (o CommandOptions) Field(kind FieldKind) FieldReference {
	switch kind {
	case FieldPage:
		return NewFieldReference(kind, o.Page, o.PageVariable)
	case FieldBank:
		return NewFieldReference(kind, o.Bank, o.BankVariable)
	default:
		return NewFieldReference(kind, o.Controller, o.ControllerVariable)
	}
}

// NewFieldReference builds a field from its raw value and the accompanying
// variable text. A bare "namespace:name" becomes a VariableRef; anything
// else (typically "$(ns:name)") is kept as a template.
func NewFieldReference(kind FieldKind, raw, variable string) FieldReference {
	f := FieldReference{Kind: kind, Raw: raw}
	if raw != UseVariable {
		return f
	}
	if !strings.Contains(variable, "$(") {
		if ref, err := ParseVariableRef(variable); err == nil {
			f.Variable = ref
			return f
		}
	}
	f.Template = variable
	return f
}

// Command is one incoming request, as the host delivers it.
type Command struct {
	Kind    CommandKind    `json:"kind" yaml:"kind"`
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
	Extras  *ContextExtras `json:"extras,omitempty" yaml:"extras,omitempty"`
}
