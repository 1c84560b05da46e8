package domain

import "time"

// InstanceState is the health a connection instance last reported.
type InstanceState int

const (
	InstanceDisabled InstanceState = -1
	InstanceOK       InstanceState = 0
	InstanceWarning  InstanceState = 1
	InstanceError    InstanceState = 2
)

// AllInstances selects the aggregate counts in instance_status feedbacks.
const AllInstances = "all"

// DefaultInstanceID is the id of this module's own instance. It has no
// status entry and instance_status feedbacks naming it render nothing.
const DefaultInstanceID = "switchboard"

// InstanceStatus is the health report the host publishes for every
// connection instance. Instances without an entry are disabled.
type InstanceStatus struct {
	Errors    int                      `json:"errors" yaml:"errors"`
	Warnings  int                      `json:"warnings" yaml:"warnings"`
	OK        int                      `json:"ok" yaml:"ok"`
	Instances map[string]InstanceState `json:"instances,omitempty" yaml:"instances,omitempty"`
}

// Aggregate returns the worst state across every instance: any error wins,
// then any warning, otherwise ok.
func (s InstanceStatus) Aggregate() InstanceState {
	switch {
	case s.Errors > 0:
		return InstanceError
	case s.Warnings > 0:
		return InstanceWarning
	default:
		return InstanceOK
	}
}

// RGB packs a color the way hosts store colorpicker values.
func RGB(r, g, b int) int {
	return (r&0xff)<<16 | (g&0xff)<<8 | b&0xff
}

// ExecRequest is one shell command issued by an exec command.
type ExecRequest struct {
	Command string
	Timeout time.Duration
}

// ExecResult is the captured outcome of an ExecRequest.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}
