//go:build !tinygo && !cgo

package hal

import (
	"context"
	"errors"
)

// WindowConfig controls the desktop runner.
type WindowConfig struct {
	HostConfig
	Scale int
}

func RunWindow(_ context.Context, _ AppFunc, _ WindowConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
