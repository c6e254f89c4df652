package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/deskforge/deskforge/pkg/execute"
)

// snapshot query commands, tried in order; whichever package-query tool
// exists decides. The snapshot runs before distribution detection.
var snapshotQueries = []execute.Command{
	execute.New("pacman", "-Q"),
	execute.New("rpm", "-qa"),
}

// Snapshot dumps the currently installed package set to a timestamped
// file under stateDir and returns its path. Best-effort: failures are
// reported to the caller to log as a warning, never to abort the run.
func Snapshot(ctx context.Context, runner execute.Runner, stateDir string) (string, error) {
	var query *execute.Command
	for i := range snapshotQueries {
		if _, err := exec.LookPath(snapshotQueries[i].Program); err == nil {
			query = &snapshotQueries[i]
			break
		}
	}
	if query == nil {
		return "", fmt.Errorf("no package-query tool available")
	}

	listing, err := runner.Output(ctx, *query)
	if err != nil {
		return "", fmt.Errorf("package query failed: %w", err)
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(stateDir, fmt.Sprintf("packages-%s.txt", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, []byte(listing), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
