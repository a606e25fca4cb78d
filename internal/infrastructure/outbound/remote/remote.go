package remote

import (
	"context"
	"time"

	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

var _ ports.RemoteHost = (*Disabled)(nil)

// Disabled is a RemoteHost for setups where the backend host is managed out
// of band. Commands and log waits are logged and reported as successful.
type Disabled struct {
	logger ports.Logger
}

// NewDisabled creates a Disabled host.
func NewDisabled(logger ports.Logger) *Disabled {
	return &Disabled{logger: logger}
}

func (d *Disabled) Exec(ctx context.Context, command string) error {
	d.logger.Info("remote command skipped", "command", command)
	return ctx.Err()
}

func (d *Disabled) WaitForLog(ctx context.Context, process, keyword string, timeout time.Duration) error {
	d.logger.Info("remote log wait skipped", "process", process, "keyword", keyword, "timeout", timeout)
	return ctx.Err()
}
