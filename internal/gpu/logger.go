//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/sprite"
)

// slogger returns the logger configured with sprite.SetLogger.
// All logging in internal/gpu goes through this function.
func slogger() *slog.Logger { return sprite.Logger() }
