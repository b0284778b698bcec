package app

import (
	"github.com/tphakala/hotspot-explorer/internal/errors"
	"github.com/tphakala/hotspot-explorer/internal/explorer"
)

// SkipInitAnnotation marks a command that runs without an initialized App.
const SkipInitAnnotation = "hotspot-explorer/skip-init"

// ErrUnreachable is returned by a command whose query could not read the
// data source. It makes the process exit non-zero after the notice is printed.
var ErrUnreachable = errors.NewStd("data source unreachable")

// Source returns the App initialized for the running command.
type Source func() *App

// StatusError maps a finished query to the command result.
func StatusError(status explorer.Status) error {
	if status == explorer.StatusUnreachable {
		return ErrUnreachable
	}
	return nil
}
