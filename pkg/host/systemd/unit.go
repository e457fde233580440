package systemd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/ssforge/ssforge/pkg/host/fsutil"
)

// ServerUnit returns the unit definition for the proxy service. The unit is
// static: everything dynamic lives in the JSON config the wrapper points at.
func ServerUnit(description, wrapperPath string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", description),
		unit.NewUnitOption("Unit", "After", "network-online.target"),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),

		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", wrapperPath),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", "3"),
		unit.NewUnitOption("Service", "KillSignal", "SIGTERM"),
		unit.NewUnitOption("Service", "TimeoutStopSec", "15"),
		unit.NewUnitOption("Service", "LimitNOFILE", "51200"),

		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
}

// WriteUnitFile serializes opts to path (mode 0644), backing up any existing
// file first and pruning old backups to keepBackups. Returns the backup
// path, "" if none was made.
func WriteUnitFile(path string, opts []*unit.UnitOption, keepBackups int) (string, error) {
	bak, err := fsutil.Snapshot(path)
	if err != nil {
		return "", fmt.Errorf("backing up %s: %w", path, err)
	}

	data, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return bak, fmt.Errorf("serializing unit: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return bak, fmt.Errorf("writing %s: %w", path, err)
	}

	if err := fsutil.Prune(path, keepBackups); err != nil {
		slog.Warn("Failed to prune backups", "path", path, "error", err)
	}
	return bak, nil
}
