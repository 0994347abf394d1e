package orchestrator

import (
	"context"
	"time"
)

// StatusInterval is how often the processing status message changes.
const StatusInterval = 15 * time.Second

// StatusMessages cycle while a file is being processed.
var StatusMessages = []string{
	"Analyzing audio...",
	"Processing voices...",
	"Transcribing dialogues...",
	"Analyzing conversations...",
	"Identifying speakers...",
	"Extracting key points...",
	"Identifying insights...",
	"Structuring content...",
	"Generating summary...",
}

// StatusAt returns the message for tick n, wrapping around.
func StatusAt(n int) string {
	if n < 0 {
		n = 0
	}
	return StatusMessages[n%len(StatusMessages)]
}

// RotateStatus calls fn with the first message at once and the next one
// every interval until ctx is done.
func RotateStatus(ctx context.Context, interval time.Duration, fn func(string)) {
	fn(StatusAt(0))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(StatusAt(n))
		}
	}
}
