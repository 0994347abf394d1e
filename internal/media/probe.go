package media

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/jwulff/minutes/internal/executor"
)

// Prober reports media durations on a best-effort basis.
type Prober struct {
	exec    executor.Executor
	ffprobe string
}

// NewProber creates a Prober. exec may be nil, in which case only WAV files
// are probed.
func NewProber(exec executor.Executor, ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{exec: exec, ffprobe: ffprobePath}
}

// Duration returns the playing time of the file at path. ok is false when it
// cannot be determined; the error is never surfaced.
func (p *Prober) Duration(ctx context.Context, path string) (d time.Duration, ok bool) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		if d, ok := wavDuration(path); ok {
			return d, true
		}
	}
	if p == nil || p.exec == nil {
		return 0, false
	}
	return p.ffprobeDuration(ctx, path)
}

func wavDuration(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, false
	}
	d, err := dec.Duration()
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func (p *Prober) ffprobeDuration(ctx context.Context, path string) (time.Duration, bool) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := p.exec.Execute(ctx, p.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
