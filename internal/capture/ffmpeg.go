package capture

import (
	"context"
	"runtime"
	"strconv"
	"strings"

	"github.com/jwulff/minutes/internal/executor"
)

// encoding is the output container and codec for a capture.
type encoding struct {
	codec     string
	format    string
	mimeType  string
	extension string
	bitrate   bool
}

var (
	opusWebM = encoding{
		codec:     "libopus",
		format:    "webm",
		mimeType:  "audio/webm",
		extension: ".webm",
		bitrate:   true,
	}
	// platform default when the opus encoder is missing
	pcmWAV = encoding{
		codec:     "pcm_s16le",
		format:    "wav",
		mimeType:  "audio/wav",
		extension: ".wav",
	}
)

// Options configures the ffmpeg capture backend.
type Options struct {
	FFmpegPath  string
	InputFormat string
	Device      string
	Bitrate     string
	Hints       Hints
}

func (o Options) withDefaults() Options {
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.InputFormat == "" || o.Device == "" {
		format, device := platformInput(runtime.GOOS)
		if o.InputFormat == "" {
			o.InputFormat = format
		}
		if o.Device == "" {
			o.Device = device
		}
	}
	if o.Bitrate == "" {
		o.Bitrate = "128k"
	}
	if o.Hints.SampleRate == 0 {
		o.Hints.SampleRate = 16000
	}
	if o.Hints.Channels == 0 {
		o.Hints.Channels = 1
	}
	return o
}

func platformInput(goos string) (format, device string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":default"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "pulse", "default"
	}
}

// selectEncoding prefers opus in webm and falls back to WAV when ffmpeg was
// built without libopus or cannot be queried.
func selectEncoding(ctx context.Context, exec executor.Executor, ffmpeg string) encoding {
	out, err := exec.Execute(ctx, ffmpeg, "-hide_banner", "-encoders")
	if err != nil {
		return pcmWAV
	}
	if strings.Contains(out, "libopus") {
		return opusWebM
	}
	return pcmWAV
}

// captureArgs builds the ffmpeg command line. Output goes to stdout so the
// recorder can accumulate chunks in memory.
func captureArgs(o Options, enc encoding) (args []string, ignored []string) {
	args = []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", o.InputFormat,
		"-i", o.Device,
		"-ac", strconv.Itoa(o.Hints.Channels),
		"-ar", strconv.Itoa(o.Hints.SampleRate),
	}

	if o.Hints.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	if o.Hints.EchoCancellation {
		// no portable ffmpeg filter for AEC
		ignored = append(ignored, "echo cancellation")
	}

	args = append(args, "-c:a", enc.codec)
	if enc.bitrate {
		args = append(args, "-b:a", o.Bitrate)
	}
	args = append(args, "-f", enc.format, "pipe:1")
	return args, ignored
}
