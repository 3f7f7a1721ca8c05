package replay

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/bryanchriswhite/DeskSnap/internal/logger"
)

// Launcher starts an executable and reports the new process id.
type Launcher interface {
	Launch(ctx context.Context, path string) (uint32, error)
}

// ExecLauncher starts executables with no arguments, in their own directory,
// and detaches from them.
type ExecLauncher struct{}

// NewExecLauncher creates a launcher backed by os/exec.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Launch starts path. The child outlives ctx; ctx only guards the start.
func (l *ExecLauncher) Launch(ctx context.Context, path string) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", path, err)
	}

	pid := uint32(cmd.Process.Pid)
	if err := cmd.Process.Release(); err != nil {
		logger.WithComponent("replay").Warn().
			Err(err).
			Str("path", path).
			Uint32("pid", pid).
			Msg("Failed to release process handle")
	}
	return pid, nil
}
