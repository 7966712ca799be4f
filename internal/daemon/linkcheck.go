package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// checkLinkSupport proves the data directory sits on a filesystem that
// accepts links before any configuration runs. A host that cannot link is
// unusable, so the failure is fatal at startup.
func checkLinkSupport(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	probe := filepath.Join(dir, ".link-probe")
	_ = os.Remove(probe)
	if err := os.Symlink(dir, probe); err != nil {
		return fmt.Errorf("filesystem does not support links: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("remove link probe: %w", err)
	}
	return nil
}
