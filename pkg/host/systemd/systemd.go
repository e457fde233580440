// Package systemd writes unit files and drives systemctl/journalctl.
package systemd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ssforge/ssforge/pkg/host"
)

// Client is the subset of systemctl/journalctl the installer needs.
type Client interface {
	DaemonReload(ctx context.Context) error
	// EnableNow enables the unit and starts it immediately.
	EnableNow(ctx context.Context, unit string) error
	Disable(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
	// IsActive reports whether the unit is in the active state.
	IsActive(ctx context.Context, unit string) (bool, error)
	// Status returns the human-readable status output for the unit.
	Status(ctx context.Context, unit string) (string, error)
	// Journal returns the last lines log lines for the unit.
	Journal(ctx context.Context, unit string, lines int) (string, error)
}

type client struct {
	x host.Execer
}

// NewClient returns a Client backed by the systemctl and journalctl
// binaries. It fails if systemctl is not on PATH.
func NewClient(x host.Execer) (Client, error) {
	if _, err := x.LookPath("systemctl"); err != nil {
		return nil, fmt.Errorf("systemctl not found: %w", err)
	}
	return &client{x: x}, nil
}

func (c *client) DaemonReload(ctx context.Context) error {
	_, err := c.x.Run(ctx, nil, "systemctl", "daemon-reload")
	return err
}

func (c *client) EnableNow(ctx context.Context, unit string) error {
	_, err := c.x.Run(ctx, nil, "systemctl", "enable", "--now", unit)
	return err
}

func (c *client) Disable(ctx context.Context, unit string) error {
	_, err := c.x.Run(ctx, nil, "systemctl", "disable", unit)
	return err
}

func (c *client) Stop(ctx context.Context, unit string) error {
	_, err := c.x.Run(ctx, nil, "systemctl", "stop", unit)
	return err
}

func (c *client) IsActive(ctx context.Context, unit string) (bool, error) {
	out, err := c.x.Run(ctx, nil, "systemctl", "is-active", unit)
	state := strings.TrimSpace(string(out))
	if err != nil {
		// is-active exits nonzero for any inactive state; that is an
		// answer, not a failure.
		if state != "" {
			return false, nil
		}
		return false, err
	}
	return state == "active", nil
}

func (c *client) Status(ctx context.Context, unit string) (string, error) {
	out, err := c.x.Run(ctx, nil, "systemctl", "status", unit, "--no-pager")
	if err != nil && len(out) == 0 {
		return "", err
	}
	// status exits nonzero for inactive units but still prints the report.
	return string(out), nil
}

func (c *client) Journal(ctx context.Context, unit string, lines int) (string, error) {
	out, err := c.x.Run(ctx, nil, "journalctl", "-u", unit, "-n", strconv.Itoa(lines), "--no-pager")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
