// Package watcher processes media files dropped into an inbox directory.
package watcher

import "context"

// Watcher monitors a directory until its context ends.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// EventHandler handles one new file.
type EventHandler func(ctx context.Context, filePath string) error
