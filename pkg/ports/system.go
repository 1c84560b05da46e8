package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// InstanceControl enables and disables connection instances.
type InstanceControl interface {
	SetInstanceEnabled(ctx context.Context, id string, enabled bool) error
}

// AppControl stops or restarts the hosting application.
// Restart returns domain.ErrUnsupported when the host cannot restart.
type AppControl interface {
	Exit(ctx context.Context) error
	Restart(ctx context.Context) error
}

// Executor runs the shell commands issued by exec commands.
// A command that ran and failed is reported through the error, with
// whatever output it produced in the result.
type Executor interface {
	Exec(ctx context.Context, req domain.ExecRequest) (domain.ExecResult, error)
}
