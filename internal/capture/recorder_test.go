package capture

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/minutes/internal/executor"
	"github.com/jwulff/minutes/internal/logger"
)

// fakeProcess streams canned audio through a pipe. Interrupt writes the
// trailer (the encoder flush) and closes the stream; Kill closes it at once.
type fakeProcess struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	trailer []byte
	hang    bool

	mu          sync.Mutex
	interrupted bool
	killed      bool
	closed      bool
	waitErr     error
}

func newFakeProcess(header, trailer []byte) *fakeProcess {
	pr, pw := io.Pipe()
	p := &fakeProcess{pr: pr, pw: pw, trailer: trailer}
	if len(header) > 0 {
		go pw.Write(header)
	}
	return p
}

func (p *fakeProcess) Stdout() io.Reader { return p.pr }

func (p *fakeProcess) Interrupt() error {
	p.mu.Lock()
	p.interrupted = true
	trailer := p.trailer
	hang := p.hang
	p.mu.Unlock()
	if hang {
		return nil
	}
	go func() {
		if len(trailer) > 0 {
			p.pw.Write(trailer)
		}
		p.close()
	}()
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.close()
	return nil
}

func (p *fakeProcess) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.pw.Close()
	}
}

func (p *fakeProcess) Wait() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

func (p *fakeProcess) released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakeProcess) signals() (interrupted, killed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interrupted, p.killed
}

type fakeExecutor struct {
	encoders string
	startErr error
	procs    []*fakeProcess
	next     func() *fakeProcess
	lastArgs []string
}

func (e *fakeExecutor) Execute(_ context.Context, _ string, _ ...string) (string, error) {
	return e.encoders, nil
}

func (e *fakeExecutor) Start(_ context.Context, _ string, args ...string) (executor.Process, error) {
	e.lastArgs = args
	if e.startErr != nil {
		return nil, e.startErr
	}
	p := e.next()
	e.procs = append(e.procs, p)
	return p, nil
}

func newTestRecorder(exec *fakeExecutor) *Recorder {
	r := NewRecorder(exec, Options{}, logger.Nop())
	r.startGrace = 50 * time.Millisecond
	return r
}

func TestStartStopYieldsBlob(t *testing.T) {
	exec := &fakeExecutor{
		encoders: " A....D libopus              libopus Opus",
		next: func() *fakeProcess {
			return newFakeProcess([]byte("webm-header"), []byte("-final-cluster"))
		},
	}
	r := newTestRecorder(exec)
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != Recording {
		t.Fatalf("state = %v, want recording", r.State())
	}

	blob, err := r.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := string(blob.Data); got != "webm-header-final-cluster" {
		t.Errorf("data = %q, want %q", got, "webm-header-final-cluster")
	}
	if blob.MIMEType != "audio/webm" || blob.Extension != ".webm" {
		t.Errorf("blob type = %s %s, want audio/webm .webm", blob.MIMEType, blob.Extension)
	}
	if r.State() != Idle {
		t.Errorf("state after stop = %v, want idle", r.State())
	}
	p := exec.procs[0]
	if interrupted, _ := p.signals(); !interrupted {
		t.Error("stop should interrupt the encoder to flush it")
	}
	if !p.released() {
		t.Error("stream should be released after stop")
	}
}

func TestStartFallsBackToWAV(t *testing.T) {
	exec := &fakeExecutor{
		encoders: " A....D aac                  AAC",
		next: func() *fakeProcess {
			return newFakeProcess([]byte("RIFF"), []byte("data"))
		},
	}
	r := newTestRecorder(exec)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	args := strings.Join(exec.lastArgs, " ")
	if !strings.Contains(args, "-c:a pcm_s16le") || !strings.Contains(args, "-f wav") {
		t.Errorf("args = %q, want wav fallback", args)
	}
	if strings.Contains(args, "-b:a") {
		t.Errorf("args = %q, pcm should not carry a bitrate", args)
	}

	blob, err := r.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if blob.MIMEType != "audio/wav" {
		t.Errorf("MIMEType = %q, want audio/wav", blob.MIMEType)
	}
}

func TestCaptureArgsHints(t *testing.T) {
	opts := Options{InputFormat: "pulse", Device: "default", Hints: DefaultHints()}.withDefaults()
	args, ignored := captureArgs(opts, opusWebM)
	joined := strings.Join(args, " ")

	for _, want := range []string{"-ac 1", "-ar 16000", "-af afftdn", "-c:a libopus", "-b:a 128k", "-f webm pipe:1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args = %q, missing %q", joined, want)
		}
	}
	if len(ignored) != 1 || ignored[0] != "echo cancellation" {
		t.Errorf("ignored = %v, want [echo cancellation]", ignored)
	}
}

func TestStartUnavailable(t *testing.T) {
	exec := &fakeExecutor{startErr: errors.New("exec: \"ffmpeg\": executable file not found")}
	r := newTestRecorder(exec)

	err := r.Start(context.Background())
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", err)
	}
	if err.Error() != UnavailableMessage {
		t.Errorf("message = %q, want %q", err.Error(), UnavailableMessage)
	}
	if r.State() != Idle {
		t.Error("failed start should leave recorder idle")
	}
}

func TestStartDeviceExitsImmediately(t *testing.T) {
	exec := &fakeExecutor{
		encoders: "libopus",
		next: func() *fakeProcess {
			p := newFakeProcess(nil, nil)
			p.waitErr = errors.New("command 'ffmpeg' failed: exit status 1\nstderr: default: No such device")
			p.close()
			return p
		},
	}
	r := newTestRecorder(exec)

	err := r.Start(context.Background())
	var unavailable *CaptureUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *CaptureUnavailableError", err)
	}
	if !strings.Contains(unavailable.Detail(), "No such device") {
		t.Errorf("detail = %q, want platform cause", unavailable.Detail())
	}
	if r.Recording() {
		t.Error("recorder should be idle")
	}
}

func TestStartTwice(t *testing.T) {
	exec := &fakeExecutor{
		encoders: "libopus",
		next:     func() *fakeProcess { return newFakeProcess([]byte("x"), nil) },
	}
	r := newTestRecorder(exec)
	defer r.Cancel()

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start err = %v, want ErrAlreadyRecording", err)
	}
	if len(exec.procs) != 1 {
		t.Errorf("processes started = %d, want 1", len(exec.procs))
	}
}

func TestStopWhileIdle(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRecorder(exec)

	_, err := r.Stop(context.Background())
	if !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
	if err.Error() != "No recording in progress" {
		t.Errorf("message = %q", err.Error())
	}
	if len(exec.procs) != 0 {
		t.Error("stop while idle should not touch any process")
	}
}

func TestCancelDiscards(t *testing.T) {
	exec := &fakeExecutor{
		encoders: "libopus",
		next:     func() *fakeProcess { return newFakeProcess([]byte("audio"), []byte("more")) },
	}
	r := newTestRecorder(exec)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Cancel()

	if r.State() != Idle {
		t.Errorf("state = %v, want idle", r.State())
	}
	p := exec.procs[0]
	if _, killed := p.signals(); !killed || !p.released() {
		t.Error("cancel should kill and release the stream")
	}
	if _, err := r.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Stop after cancel err = %v, want ErrNotRecording", err)
	}

	// idempotent
	r.Cancel()
	r.Cancel()
}

func TestStopContextExpired(t *testing.T) {
	exec := &fakeExecutor{
		encoders: "libopus",
		next: func() *fakeProcess {
			p := newFakeProcess([]byte("audio"), nil)
			p.hang = true
			return p
		},
	}
	r := newTestRecorder(exec)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Stop(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	p := exec.procs[0]
	if _, killed := p.signals(); !killed || !p.released() {
		t.Error("stream should be killed and released when the flush is abandoned")
	}
	if r.Recording() {
		t.Error("recorder should be idle")
	}
}

func TestStopEmpty(t *testing.T) {
	exec := &fakeExecutor{
		encoders: "libopus",
		next:     func() *fakeProcess { return newFakeProcess(nil, nil) },
	}
	r := newTestRecorder(exec)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Stop(context.Background()); !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("err = %v, want ErrEmptyRecording", err)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		local   bool
		wantErr bool
	}{
		{"microphone", TypeMicrophone, true, false},
		{"", TypeMicrophone, true, false},
		{"system", TypeSystem, false, false},
		{"both", TypeBoth, false, false},
		{"webcam", "", false, true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err == nil && got.Local() != tt.local {
			t.Errorf("%q.Local() = %v, want %v", got, got.Local(), tt.local)
		}
	}
}

func TestPlatformInput(t *testing.T) {
	format, _ := platformInput("darwin")
	if format != "avfoundation" {
		t.Errorf("darwin format = %q", format)
	}
	format, device := platformInput("linux")
	if format != "pulse" || device != "default" {
		t.Errorf("linux input = %q %q", format, device)
	}
}
