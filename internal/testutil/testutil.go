// Package testutil holds small helpers shared across package tests.
package testutil

import (
	"io"
	"log/slog"
)

// Logger returns a logger that discards everything, keeping test output quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
