//go:build !windows

package window

import (
	"fmt"
	"runtime"

	"github.com/bryanchriswhite/DeskSnap/internal/desktop"
)

type unsupportedSource struct{}

// NewSource returns the platform window source. Outside Windows every walk
// fails with desktop.ErrUnsupportedPlatform.
func NewSource() Source {
	return unsupportedSource{}
}

func (unsupportedSource) Windows() ([]Native, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, desktop.ErrUnsupportedPlatform)
}

func (unsupportedSource) ExecutablePath(pid uint32) (string, error) {
	return "", fmt.Errorf("%s: %w", runtime.GOOS, desktop.ErrUnsupportedPlatform)
}

func (unsupportedSource) Name() string {
	return "unsupported"
}
