// Package fsutil implements timestamped file backups with a bounded
// retention policy.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// backupTimeFormat is fixed-width so backup names sort lexicographically in
// creation order.
const backupTimeFormat = "20060102T150405.000000000"

// Snapshot copies path to path.bak.<timestamp>, preserving the file mode.
// It returns the backup path, or "" if path does not exist.
func Snapshot(path string) (string, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	bak := fmt.Sprintf("%s.bak.%s", path, time.Now().Format(backupTimeFormat))
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(bak, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", bak, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy to %s: %w", bak, err)
	}
	return bak, nil
}

// Backups returns the backups of path, oldest first.
func Backups(path string) ([]string, error) {
	baks, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil, err
	}
	sort.Strings(baks)
	return baks, nil
}

// Prune removes all but the newest keep backups of path. keep <= 0 disables
// pruning.
func Prune(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	baks, err := Backups(path)
	if err != nil {
		return err
	}
	if len(baks) <= keep {
		return nil
	}
	for _, b := range baks[:len(baks)-keep] {
		if err := os.Remove(b); err != nil {
			return fmt.Errorf("removing backup %s: %w", b, err)
		}
	}
	return nil
}
