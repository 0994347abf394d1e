package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/metrics"
)

// RemoteAPI is the part of the API client that drives server-side capture.
type RemoteAPI interface {
	StartSystemRecording(ctx context.Context, recordingType string) error
	StopSystemRecording(ctx context.Context) (api.SystemRecording, error)
	Download(ctx context.Context, fileID string, w io.Writer) (int64, error)
}

// SystemRecorder records system audio (or system audio mixed with the
// microphone) on the API host and downloads the result on Stop.
type SystemRecorder struct {
	api RemoteAPI
	typ Type
	log logger.Logger

	mu        sync.Mutex
	recording bool
	startedAt time.Time
	now       func() time.Time
}

// NewSystemRecorder creates an idle recorder for TypeSystem or TypeBoth.
func NewSystemRecorder(remote RemoteAPI, typ Type, log logger.Logger) *SystemRecorder {
	return &SystemRecorder{api: remote, typ: typ, log: log, now: time.Now}
}

// Start asks the server to begin recording.
func (r *SystemRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	if err := r.api.StartSystemRecording(ctx, string(r.typ)); err != nil {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return err
	}
	r.recording = true
	r.startedAt = r.now()
	r.log.Info(ctx, "%s recording started on server", r.typ)
	return nil
}

// Stop ends the server recording and downloads it. The file name and
// duration come from the server when it reports them; otherwise the name is
// generated and the duration is the wall-clock time since Start.
func (r *SystemRecorder) Stop(ctx context.Context) (Blob, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Blob{}, ErrNotRecording
	}
	r.recording = false
	elapsed := r.now().Sub(r.startedAt)
	r.mu.Unlock()

	rec, err := r.api.StopSystemRecording(ctx)
	if err != nil {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, err
	}
	if rec.FileID == "" {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, fmt.Errorf("stop recording: server returned no file")
	}

	var buf bytes.Buffer
	if _, err := r.api.Download(ctx, rec.FileID, &buf); err != nil {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, err
	}
	if buf.Len() == 0 {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, ErrEmptyRecording
	}

	name := rec.Filename
	if name == "" {
		name = RecordingName(r.now(), ".wav")
	}
	duration := time.Duration(rec.Duration * float64(time.Second))
	if duration <= 0 {
		duration = elapsed
	}

	metrics.CaptureSessions.WithLabelValues("stopped").Inc()
	r.log.Info(ctx, "%s recording stopped: %s, %d bytes", r.typ, name, buf.Len())
	return Blob{
		Data:      buf.Bytes(),
		MIMEType:  "audio/wav",
		Extension: strings.ToLower(filepath.Ext(name)),
		Name:      name,
		Duration:  duration,
	}, nil
}

// Cancel forgets the local recording flag and asks the server to stop,
// discarding whatever it recorded.
func (r *SystemRecorder) Cancel() {
	r.mu.Lock()
	active := r.recording
	r.recording = false
	r.mu.Unlock()
	if !active {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.api.StopSystemRecording(ctx); err != nil {
		r.log.Warn(ctx, "cancel server recording: %v", err)
	}
	metrics.CaptureSessions.WithLabelValues("cancelled").Inc()
}

// Recording reports whether a server recording is active.
func (r *SystemRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Elapsed returns the time since Start while recording.
func (r *SystemRecorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return 0
	}
	return r.now().Sub(r.startedAt)
}

// RecordingName builds recording_<UTC timestamp><ext> with the separators
// that are unsafe in file names replaced.
func RecordingName(t time.Time, ext string) string {
	return "recording_" + t.UTC().Format("2006-01-02T15-04-05-000Z") + ext
}
