package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jwulff/minutes/internal/executor"
	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/metrics"
)

// defaultStartGrace is how long Start waits for the device to either produce
// audio or fail before reporting success.
const defaultStartGrace = 750 * time.Millisecond

// Recorder wraps an ffmpeg capture into start/stop/cancel operations.
type Recorder struct {
	exec executor.Executor
	opts Options
	log  logger.Logger

	startGrace time.Duration

	mu  sync.Mutex
	cur *session
}

// NewRecorder creates an idle Recorder.
func NewRecorder(exec executor.Executor, opts Options, log logger.Logger) *Recorder {
	return &Recorder{
		exec:       exec,
		opts:       opts.withDefaults(),
		log:        log,
		startGrace: defaultStartGrace,
	}
}

// session is one capture: the running process plus the chunks read so far.
type session struct {
	proc      executor.Process
	enc       encoding
	startedAt time.Time

	mu     sync.Mutex
	chunks [][]byte

	firstData chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	readErr   error
}

func (s *session) pump(r io.Reader) {
	defer close(s.done)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.mu.Lock()
			s.chunks = append(s.chunks, chunk)
			s.mu.Unlock()
			s.firstOnce.Do(func() { close(s.firstData) })
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.readErr = err
			}
			return
		}
	}
}

func (s *session) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Join(s.chunks, nil)
}

func (s *session) discard() {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
}

// Start acquires the input device and begins capturing. On failure the
// recorder stays Idle and the error is a *CaptureUnavailableError.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cur != nil {
		return ErrAlreadyRecording
	}

	enc := selectEncoding(ctx, r.exec, r.opts.FFmpegPath)
	args, ignored := captureArgs(r.opts, enc)
	if len(ignored) > 0 {
		r.log.Debug(ctx, "capture hints not supported by ffmpeg backend: %s", strings.Join(ignored, ", "))
	}

	// The process outlives the caller's context; Stop and Cancel end it.
	proc, err := r.exec.Start(context.WithoutCancel(ctx), r.opts.FFmpegPath, args...)
	if err != nil {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		r.log.Error(ctx, "start capture: %v", err)
		return &CaptureUnavailableError{Cause: err}
	}

	s := &session{
		proc:      proc,
		enc:       enc,
		startedAt: time.Now(),
		firstData: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.pump(proc.Stdout())

	select {
	case <-s.firstData:
	case <-s.done:
		// exited before producing audio: no device or permission denied
		waitErr := proc.Wait()
		if waitErr == nil {
			waitErr = s.readErr
		}
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		r.log.Error(ctx, "capture exited on start: %v", waitErr)
		return &CaptureUnavailableError{Cause: waitErr}
	case <-time.After(r.startGrace):
		// still running; the encoder may hold its first page
	case <-ctx.Done():
		r.release(s)
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return &CaptureUnavailableError{Cause: ctx.Err()}
	}

	r.cur = s
	r.log.Info(ctx, "capture started (%s via %s %s)", enc.mimeType, r.opts.InputFormat, r.opts.Device)
	return nil
}

// Stop flushes the encoder and returns the recording. The recorder is Idle
// as soon as Stop is called; the blob is returned once the flush completes.
// If ctx ends first the process is killed and ctx.Err is returned.
func (r *Recorder) Stop(ctx context.Context) (Blob, error) {
	r.mu.Lock()
	s := r.cur
	r.cur = nil
	r.mu.Unlock()

	if s == nil {
		return Blob{}, ErrNotRecording
	}

	if err := s.proc.Interrupt(); err != nil {
		r.log.Warn(ctx, "interrupt capture: %v", err)
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		r.release(s)
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, ctx.Err()
	}

	// ffmpeg exits non-zero after SIGINT even on a clean flush
	if err := s.proc.Wait(); err != nil {
		r.log.Debug(ctx, "capture exit: %v", err)
	}

	data := s.bytes()
	s.discard()
	if len(data) == 0 {
		metrics.CaptureSessions.WithLabelValues("failed").Inc()
		return Blob{}, ErrEmptyRecording
	}

	metrics.CaptureSessions.WithLabelValues("stopped").Inc()
	r.log.Info(ctx, "capture stopped after %s, %d bytes", time.Since(s.startedAt).Round(time.Second), len(data))
	return Blob{
		Data:      data,
		MIMEType:  s.enc.mimeType,
		Extension: s.enc.extension,
	}, nil
}

// Cancel tears down any capture and discards its audio. Safe in any state.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	s := r.cur
	r.cur = nil
	r.mu.Unlock()

	if s == nil {
		return
	}
	r.release(s)
	metrics.CaptureSessions.WithLabelValues("cancelled").Inc()
}

// release kills the process, drains the reader and drops the chunks.
func (r *Recorder) release(s *session) {
	_ = s.proc.Kill()
	<-s.done
	_ = s.proc.Wait()
	s.discard()
}

// Recording reports whether a capture is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil
}

// State returns Idle or Recording.
func (r *Recorder) State() State {
	if r.Recording() {
		return Recording
	}
	return Idle
}

// Elapsed returns how long the active capture has been running.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur == nil {
		return 0
	}
	return time.Since(r.cur.startedAt)
}
