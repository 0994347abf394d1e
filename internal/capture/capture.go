// Package capture records microphone audio through an ffmpeg subprocess.
//
// A Recorder owns at most one capture at a time. Start acquires the input
// device, Stop flushes the encoder and returns the encoded bytes, Cancel
// discards everything. The device is released on every exit path.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the recorder state. There is no paused state.
type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// UnavailableMessage is shown when the input device cannot be opened.
const UnavailableMessage = "Could not access microphone. Please ensure you have granted microphone permissions."

var (
	ErrCaptureUnavailable = errors.New("capture unavailable")
	ErrNotRecording       = errors.New("No recording in progress")
	ErrAlreadyRecording   = errors.New("recording already in progress")
	ErrEmptyRecording     = errors.New("recording produced no audio")
)

// CaptureUnavailableError reports that no input stream could be acquired.
// Error returns the user-facing remediation message; the platform cause is
// available through Unwrap.
type CaptureUnavailableError struct {
	Cause error
}

func (e *CaptureUnavailableError) Error() string { return UnavailableMessage }

func (e *CaptureUnavailableError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCaptureUnavailable}
	}
	return []error{ErrCaptureUnavailable, e.Cause}
}

// Detail includes the underlying cause, for logs.
func (e *CaptureUnavailableError) Detail() string {
	if e.Cause == nil {
		return UnavailableMessage
	}
	return fmt.Sprintf("%s (%v)", UnavailableMessage, e.Cause)
}

// Hints are requests to the capture backend, not guarantees.
type Hints struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultHints asks for mono 16 kHz audio with echo cancellation and noise
// suppression.
func DefaultHints() Hints {
	return Hints{
		SampleRate:       16000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Blob is a finished recording.
type Blob struct {
	Data      []byte
	MIMEType  string
	Extension string

	// Set by server-side recordings only.
	Name     string
	Duration time.Duration
}

// Type selects where audio is captured.
type Type string

const (
	TypeMicrophone Type = "microphone"
	TypeSystem     Type = "system"
	TypeBoth       Type = "both"
)

// ParseType validates a recording type name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMicrophone, TypeSystem, TypeBoth:
		return Type(s), nil
	case "":
		return TypeMicrophone, nil
	}
	return "", fmt.Errorf("unknown recording type %q (want microphone, system or both)", s)
}

// Local reports whether t is captured on this machine. System and mixed
// capture run on the API server.
func (t Type) Local() bool {
	return t == TypeMicrophone
}

// Source is a recorder the UI can drive without caring where audio is
// captured. Recorder and SystemRecorder implement it.
type Source interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (Blob, error)
	Cancel()
	Recording() bool
	Elapsed() time.Duration
}
