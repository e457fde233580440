// Package host abstracts the external host tools the installer drives
// (package manager, systemctl, journalctl) behind a small exec interface so
// provisioning logic can be tested without a real host.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Execer runs external commands. The system implementation shells out; tests
// substitute fakes.
type Execer interface {
	// LookPath reports the absolute path of name or an error if it is not
	// installed on the host.
	LookPath(name string) (string, error)
	// Run executes name with args and returns its combined output. Extra
	// environment entries are appended to the inherited environment.
	Run(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error)
}

type systemExecer struct{}

// System returns an Execer backed by os/exec.
func System() Execer {
	return systemExecer{}
}

func (systemExecer) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (systemExecer) Run(ctx context.Context, extraEnv []string, name string, args ...string) ([]byte, error) {
	slog.Debug("Running command", "cmd", name, "args", strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), extraEnv...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}
