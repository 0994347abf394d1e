// Package orchestrator stages one audio or video file and runs the
// upload-then-process flow against the API.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/capture"
	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/media"
	"github.com/jwulff/minutes/internal/metrics"
)

// DefaultLanguage is sent when no language is selected.
const DefaultLanguage = "en"

var (
	ErrNoFile = errors.New("No audio or video file selected.")
	ErrBusy   = errors.New("processing already in progress")
)

// Processor is the API surface the flow needs.
type Processor interface {
	Upload(ctx context.Context, filename string, r io.Reader) (api.UploadResponse, error)
	Process(ctx context.Context, fileID, language string) (api.Result, error)
	ProcessWithAgent(ctx context.Context, fileID, language string, agentID, userID int) (api.Result, error)
}

// History archives successful results. It may be nil.
type History interface {
	SaveRecording(rec *db.Recording) error
}

// Staged is the file waiting to be processed.
type Staged struct {
	Name          string
	MIMEType      string
	Size          int64
	Path          string
	Duration      time.Duration
	DurationKnown bool

	// owned files were created by us and are removed when replaced
	owned bool
}

// Owned reports whether the file is a temp file the orchestrator created.
func (s Staged) Owned() bool { return s.owned }

// Options selects how the staged file is processed.
type Options struct {
	Language  string
	AgentID   int
	AgentName string
	UserID    int
}

// Orchestrator holds the staged file and the last result.
type Orchestrator struct {
	api     Processor
	prober  *media.Prober
	history History
	log     logger.Logger
	tempDir string

	mu     sync.Mutex
	staged *Staged
	busy   bool
	result *api.Result
}

// New creates an Orchestrator. Temp files for recordings go to the OS temp
// directory.
func New(p Processor, prober *media.Prober, history History, log logger.Logger) *Orchestrator {
	return &Orchestrator{api: p, prober: prober, history: history, log: log, tempDir: os.TempDir()}
}

// Stage validates the file at path and makes it the staged file. A rejected
// file leaves the current staged file untouched.
func (o *Orchestrator) Stage(ctx context.Context, path string) (Staged, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Staged{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Staged{}, media.ErrInvalidFileType
	}
	name := filepath.Base(path)
	f := media.File{Name: name, MIMEType: media.TypeByName(name), Size: info.Size()}
	if err := media.Validate(f); err != nil {
		return Staged{}, err
	}
	return o.stage(ctx, f, path, false, 0)
}

// StageBlob writes a finished recording to an owned temp file and stages it.
// Blobs without a name get recording_<timestamp>.<ext>.
func (o *Orchestrator) StageBlob(ctx context.Context, blob capture.Blob) (Staged, error) {
	name := blob.Name
	if name == "" {
		name = capture.RecordingName(time.Now(), blob.Extension)
	}
	f := media.File{Name: name, MIMEType: blob.MIMEType, Size: int64(len(blob.Data))}
	if err := media.Validate(f); err != nil {
		return Staged{}, err
	}

	dir, err := os.MkdirTemp(o.tempDir, "minutes-")
	if err != nil {
		return Staged{}, fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		os.RemoveAll(dir)
		return Staged{}, fmt.Errorf("write recording: %w", err)
	}

	st, err := o.stage(ctx, f, path, true, blob.Duration)
	if err != nil {
		os.RemoveAll(dir)
	}
	return st, err
}

// stage swaps in an already validated file.
func (o *Orchestrator) stage(ctx context.Context, f media.File, path string, owned bool, known time.Duration) (Staged, error) {
	st := Staged{
		Name:     f.Name,
		MIMEType: f.MIMEType,
		Size:     f.Size,
		Path:     path,
		owned:    owned,
	}
	if known > 0 {
		st.Duration, st.DurationKnown = known, true
	} else {
		st.Duration, st.DurationKnown = o.prober.Duration(ctx, path)
	}

	o.mu.Lock()
	prev := o.staged
	o.staged = &st
	o.mu.Unlock()

	release(prev)
	o.log.Debug(ctx, "staged %s (%s, %s)", st.Name, media.FormatFileSize(st.Size), media.FormatDuration(st.Duration, st.DurationKnown))
	return st, nil
}

// Clear drops the staged file and the last result.
func (o *Orchestrator) Clear() {
	o.mu.Lock()
	prev := o.staged
	o.staged = nil
	o.result = nil
	o.mu.Unlock()
	release(prev)
}

// release removes an owned temp file and its directory.
func release(s *Staged) {
	if s == nil || !s.owned {
		return
	}
	os.RemoveAll(filepath.Dir(s.Path))
}

// Staged returns the staged file, if any.
func (o *Orchestrator) Staged() (Staged, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.staged == nil {
		return Staged{}, false
	}
	return *o.staged, true
}

// Busy reports whether a flow is running.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Result returns the last successful result.
func (o *Orchestrator) Result() (api.Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.result == nil {
		return api.Result{}, false
	}
	return *o.result, true
}

// Process uploads the staged file and requests processing. Either step's
// failure aborts the flow with the API's message; nothing is retried.
func (o *Orchestrator) Process(ctx context.Context, opts Options) (api.Result, error) {
	o.mu.Lock()
	if o.staged == nil {
		o.mu.Unlock()
		return api.Result{}, ErrNoFile
	}
	if o.busy {
		o.mu.Unlock()
		return api.Result{}, ErrBusy
	}
	o.busy = true
	st := *o.staged
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}

	res, err := o.run(ctx, st, opts)
	if err != nil {
		metrics.ProcessedFiles.WithLabelValues("failed").Inc()
		o.log.Error(ctx, "process %s: %v", st.Name, err)
		return api.Result{}, err
	}
	metrics.ProcessedFiles.WithLabelValues("succeeded").Inc()

	o.mu.Lock()
	o.result = &res
	o.mu.Unlock()

	o.archive(ctx, st, opts, res)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, st Staged, opts Options) (api.Result, error) {
	f, err := os.Open(st.Path)
	if err != nil {
		return api.Result{}, fmt.Errorf("open %s: %w", st.Name, err)
	}
	defer f.Close()

	up, err := o.api.Upload(ctx, st.Name, f)
	if err != nil {
		return api.Result{}, err
	}
	o.log.Info(ctx, "uploaded %s as %s", st.Name, up.FileID)

	if opts.AgentID != 0 {
		return o.api.ProcessWithAgent(ctx, up.FileID, opts.Language, opts.AgentID, opts.UserID)
	}
	return o.api.Process(ctx, up.FileID, opts.Language)
}

func (o *Orchestrator) archive(ctx context.Context, st Staged, opts Options, res api.Result) {
	if o.history == nil {
		return
	}
	rec := &db.Recording{
		UserID:     opts.UserID,
		FileName:   st.Name,
		Language:   opts.Language,
		Agent:      opts.AgentName,
		Transcript: res.Transcription,
		Summary:    res.SummaryText(),
	}
	if st.DurationKnown {
		rec.Duration = st.Duration
	}
	for _, d := range res.Dialogues {
		rec.Dialogues = append(rec.Dialogues, db.Dialogue{Speaker: d.Speaker, Text: d.Text})
	}
	if err := o.history.SaveRecording(rec); err != nil {
		o.log.Warn(ctx, "save history: %v", err)
	}
}
