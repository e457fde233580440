// Package pkgmgr installs system packages through whichever package manager
// the host carries.
package pkgmgr

import (
	"context"
	"fmt"

	"github.com/ssforge/ssforge/pkg/host"
)

// Manager installs packages non-interactively.
type Manager interface {
	// Name identifies the underlying tool, e.g. "apt-get".
	Name() string
	// Install installs pkg, assuming yes to all prompts.
	Install(ctx context.Context, pkg string) error
}

// Detect returns a Manager for the first supported package manager found on
// PATH, trying apt-get, dnf, then yum.
func Detect(x host.Execer) (Manager, error) {
	if _, err := x.LookPath("apt-get"); err == nil {
		return &aptGet{x: x}, nil
	}
	if _, err := x.LookPath("dnf"); err == nil {
		return &dnf{x: x, cmd: "dnf"}, nil
	}
	if _, err := x.LookPath("yum"); err == nil {
		return &dnf{x: x, cmd: "yum"}, nil
	}
	return nil, fmt.Errorf("no supported package manager found (tried apt-get, dnf, yum)")
}

type aptGet struct {
	x host.Execer
}

func (a *aptGet) Name() string { return "apt-get" }

func (a *aptGet) Install(ctx context.Context, pkg string) error {
	env := []string{"DEBIAN_FRONTEND=noninteractive"}
	if _, err := a.x.Run(ctx, env, "apt-get", "install", "-y", "--no-install-recommends", pkg); err != nil {
		return fmt.Errorf("installing %s: %w", pkg, err)
	}
	return nil
}

// dnf drives dnf and its predecessor yum, which share a CLI.
type dnf struct {
	x   host.Execer
	cmd string
}

func (d *dnf) Name() string { return d.cmd }

func (d *dnf) Install(ctx context.Context, pkg string) error {
	if _, err := d.x.Run(ctx, nil, d.cmd, "install", "-y", pkg); err != nil {
		return fmt.Errorf("installing %s: %w", pkg, err)
	}
	return nil
}
