package app

import (
	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/chat"
	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/orchestrator"
)

// SessionCheckedMsg carries the result of the startup session check.
type SessionCheckedMsg struct {
	User api.User
	Err  error
}

// LoginDoneMsg is sent when a login attempt finishes.
type LoginDoneMsg struct {
	User api.User
	Err  error
}

// LogoutDoneMsg is sent after the session record is removed.
type LogoutDoneMsg struct {
	Err error
}

// PasswordChangedMsg is sent when a password change finishes.
type PasswordChangedMsg struct {
	Err error
}

// RecordingStartedMsg is sent when the capture source has started (or failed to).
type RecordingStartedMsg struct {
	Err error
}

// RecordingStoppedMsg carries the staged recording after stop.
type RecordingStoppedMsg struct {
	Staged orchestrator.Staged
	Err    error
}

// RecordingTickMsg refreshes the recording timer.
type RecordingTickMsg struct {
	Seq int
}

// StagedMsg carries the result of staging a file from disk.
type StagedMsg struct {
	Staged orchestrator.Staged
	Err    error
}

// ProcessDoneMsg carries the processing result.
type ProcessDoneMsg struct {
	Result api.Result
	Err    error
}

// StatusTickMsg advances the processing status message.
type StatusTickMsg struct {
	Seq int
	N   int
}

// ChatReplyMsg carries the answer to a chat message.
type ChatReplyMsg struct {
	Reply chat.Reply
	Err   error
}

// AgentsLoadedMsg carries the agent list.
type AgentsLoadedMsg struct {
	Agents []api.Agent
	Err    error
}

// HistoryLoadedMsg carries recordings from the local history.
type HistoryLoadedMsg struct {
	Recordings []db.Recording
	Err        error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
