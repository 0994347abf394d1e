// Package executor runs external tools such as ffmpeg and ffprobe.
package executor

import (
	"context"
	"io"
)

// Executor defines the interface for executing external commands.
type Executor interface {
	// Execute runs a command to completion and returns its stdout.
	Execute(ctx context.Context, name string, args ...string) (string, error)
	// Start launches a long-running command whose stdout is streamed.
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// Process is a running command started by Executor.Start.
type Process interface {
	Stdout() io.Reader
	// Interrupt asks the command to finish cleanly (SIGINT).
	Interrupt() error
	// Wait blocks until the command exits.
	Wait() error
	// Kill terminates the command immediately.
	Kill() error
}
