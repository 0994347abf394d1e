// Package api provides the client and wire types for the meeting
// summarization REST API.
package api

import "encoding/json"

// User is the authenticated user record returned by login.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      int    `json:"role"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ChangePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type UploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename,omitempty"`
}

// ProcessRequest starts transcription and summarization of an uploaded
// file. AgentID and UserID are only sent to the agent endpoint.
type ProcessRequest struct {
	FileID   string `json:"file_id"`
	Language string `json:"language"`
	AgentID  int    `json:"agent_id,omitempty"`
	UserID   int    `json:"user_id,omitempty"`
}

// Dialogue is one diarized speaker turn.
type Dialogue struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// SpeechmaticsSummary is the summary produced alongside the transcript.
type SpeechmaticsSummary struct {
	Content       string `json:"content"`
	SummaryType   string `json:"summary_type,omitempty"`
	SummaryLength string `json:"summary_length,omitempty"`
}

// Result is the processing response.
type Result struct {
	Success             bool                 `json:"success"`
	Transcription       string               `json:"transcription"`
	Dialogues           []Dialogue           `json:"dialogues"`
	Summary             json.RawMessage      `json:"summary,omitempty"`
	SpeechmaticsSummary *SpeechmaticsSummary `json:"speechmatics_summary,omitempty"`
	AgentSummary        string               `json:"agent_summary,omitempty"`
	AgentUsed           json.RawMessage      `json:"agent_used,omitempty"`
}

// SummaryText returns the summary shown to the user: the speechmatics
// summary content when present, otherwise an agent summary, otherwise a
// plain string summary.
func (r Result) SummaryText() string {
	if r.SpeechmaticsSummary != nil && r.SpeechmaticsSummary.Content != "" {
		return r.SpeechmaticsSummary.Content
	}
	if r.AgentSummary != "" {
		return r.AgentSummary
	}
	var s string
	if len(r.Summary) > 0 && json.Unmarshal(r.Summary, &s) == nil {
		return s
	}
	return ""
}

// HasTranscript reports whether chat can use this result as context.
func (r Result) HasTranscript() bool {
	return r.Transcription != ""
}

type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type EditSummaryRequest struct {
	Instruction    string `json:"instruction"`
	CurrentSummary string `json:"current_summary"`
	Context        string `json:"context"`
}

type EditSummaryResponse struct {
	EditedSummary string `json:"edited_summary"`
}

type SystemRecordingRequest struct {
	Type string `json:"type"`
}

// SystemRecording is returned when a server-side recording stops.
type SystemRecording struct {
	FileID   string  `json:"file_id"`
	Filename string  `json:"filename"`
	Duration float64 `json:"duration"`
}

// Agent is a server-stored summarization configuration.
type Agent struct {
	ID             int    `json:"id,omitempty"`
	UserID         int    `json:"user_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Provider       string `json:"provider"`
	ModelName      string `json:"model_name,omitempty"`
	PromptTemplate string `json:"prompt_template"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// ModelLabel is the model name or "Default".
func (a Agent) ModelLabel() string {
	if a.ModelName == "" {
		return "Default"
	}
	return a.ModelName
}

type agentsResponse struct {
	Success bool    `json:"success"`
	Agents  []Agent `json:"agents"`
	Error   string  `json:"error,omitempty"`
}

type agentResponse struct {
	Success bool   `json:"success"`
	Agent   *Agent `json:"agent,omitempty"`
	Error   string `json:"error,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Health is the /api/health payload.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
