// Package apitest runs an in-process fake of the summarization API for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jwulff/minutes/internal/api"
)

// Failure forces an endpoint to answer with Status and {"error": Message}.
// An empty Message sends an empty JSON object so the client falls back to
// its own text.
type Failure struct {
	Status  int
	Message string
}

// Server is a chi-backed fake. Fields are configured before requests are
// made; counters are read through Calls.
type Server struct {
	*httptest.Server

	// Password accepted for every user in Users.
	Password string
	Users    map[string]api.User

	Result    api.Result
	ChatReply string
	EditReply string
	Recording api.SystemRecording
	Recorded  []byte
	Failures  map[string]Failure
	BlockChat chan struct{}
	BlockProc chan struct{}

	mu       sync.Mutex
	calls    map[string]int
	uploads  map[string][]byte
	agents   map[int]api.Agent
	nextID   int
	lastBody map[string][]byte
}

// New starts a fake API with one admin and one regular user.
func New() *Server {
	s := &Server{
		Password: "secret",
		Users: map[string]api.User{
			"admin@example.com": {ID: 1, Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: 0},
			"user@example.com":  {ID: 2, Email: "user@example.com", FirstName: "Uma", LastName: "User", Role: 2},
		},
		Result: api.Result{
			Success:       true,
			Transcription: "We agreed to ship on Friday.",
			Dialogues: []api.Dialogue{
				{Speaker: "S1", Text: "Shall we ship on Friday?"},
				{Speaker: "S2", Text: "Yes, Friday works."},
			},
			Summary: json.RawMessage(`"Ship on Friday."`),
			SpeechmaticsSummary: &api.SpeechmaticsSummary{
				Content:       "# Decisions\n- Ship on Friday",
				SummaryType:   "bullets",
				SummaryLength: "brief",
			},
		},
		ChatReply: "The team decided to ship on Friday.",
		EditReply: "- Ship Friday",
		Recording: api.SystemRecording{Filename: "system_recording.wav", Duration: 3},
		Recorded:  []byte("RIFF-system-audio"),
		Failures:  map[string]Failure{},
		calls:     map[string]int{},
		uploads:   map[string][]byte{},
		agents:    map[int]api.Agent{},
		nextID:    1,
		lastBody:  map[string][]byte{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, api.Health{Status: "healthy", Message: "Server is running"})
	})
	r.Post("/api/login", s.login)
	r.Post("/api/change-password", s.changePassword)
	r.Post("/api/upload", s.upload)
	r.Post("/api/process", s.process)
	r.Post("/api/process-with-agent", s.processWithAgent)
	r.Post("/api/chat", s.chat)
	r.Post("/api/edit-summary", s.editSummary)
	r.Post("/api/start-system-recording", s.startRecording)
	r.Post("/api/stop-system-recording", s.stopRecording)
	r.Get("/uploads/{fileID}", s.download)
	r.Route("/api/agents", func(r chi.Router) {
		r.Get("/", s.listAgents)
		r.Post("/", s.createAgent)
		r.Put("/{id}", s.updateAgent)
		r.Delete("/{id}", s.deleteAgent)
	})
	return r
}

// count records the call and answers with a configured Failure.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[key]++
		f, fail := s.Failures[r.URL.Path]
		s.mu.Unlock()

		if fail {
			if f.Message == "" {
				respondJSON(w, f.Status, map[string]any{})
				return
			}
			respondError(w, f.Status, f.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many times method+path was requested.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// Fail makes path answer with status and message until cleared.
func (s *Server) Fail(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures[path] = Failure{Status: status, Message: message}
}

// LastBody returns the last JSON body posted to path.
func (s *Server) LastBody(path string) map[string]any {
	s.mu.Lock()
	raw := s.lastBody[path]
	s.mu.Unlock()
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	return m
}

// Uploaded returns the bytes received for fileID.
func (s *Server) Uploaded(fileID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.uploads[fileID]
	return b, ok
}

// UploadCount returns the number of stored uploads.
func (s *Server) UploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// AddAgent stores an agent and returns it with its id.
func (s *Server) AddAgent(a api.Agent) api.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	s.agents[a.ID] = a
	return a
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	s.mu.Lock()
	s.lastBody[r.URL.Path] = body
	s.mu.Unlock()
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !s.decode(w, r, &req) {
		return
	}
	u, ok := s.Users[req.Email]
	if !ok || req.Password != s.Password {
		respondJSON(w, http.StatusUnauthorized, api.LoginResponse{Error: "Invalid email or password"})
		return
	}
	respondJSON(w, http.StatusOK, api.LoginResponse{Success: true, User: &u})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req api.ChangePasswordRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.CurrentPassword != s.Password {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Current password is incorrect"})
		return
	}
	s.mu.Lock()
	s.Password = req.NewPassword
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password updated"})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = data
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"file_id":  id,
		"filename": header.Filename,
		"size":     len(data),
	})
}

func (s *Server) known(fileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.uploads[fileID]
	return ok
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	var req api.ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.BlockProc != nil {
		<-s.BlockProc
	}
	if !s.known(req.FileID) {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	respondJSON(w, http.StatusOK, s.Result)
}

func (s *Server) processWithAgent(w http.ResponseWriter, r *http.Request) {
	var req api.ProcessRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.known(req.FileID) {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	s.mu.Lock()
	agent, ok := s.agents[req.AgentID]
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Agent not found")
		return
	}
	res := s.Result
	res.AgentSummary = "Agent " + agent.Name + " summary"
	used, _ := json.Marshal(map[string]any{"id": agent.ID, "name": agent.Name})
	res.AgentUsed = used
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if s.BlockChat != nil {
		<-s.BlockChat
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "response": s.ChatReply})
}

func (s *Server) editSummary(w http.ResponseWriter, r *http.Request) {
	var req api.EditSummaryRequest
	if !s.decode(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "edited_summary": s.EditReply})
}

func (s *Server) startRecording(w http.ResponseWriter, r *http.Request) {
	var req api.SystemRecordingRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Type != "system" && req.Type != "both" {
		respondError(w, http.StatusBadRequest, "Invalid recording type")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) stopRecording(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	s.mu.Lock()
	s.uploads[id] = s.Recorded
	rec := s.Recording
	s.mu.Unlock()
	rec.FileID = id
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	data, ok := s.Uploaded(chi.URLParam(r, "fileID"))
	if !ok {
		respondError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) isAdmin(userID string) bool {
	id, err := strconv.Atoi(userID)
	if err != nil {
		return false
	}
	for _, u := range s.Users {
		if u.ID == id {
			return u.Role == 0
		}
	}
	return false
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	if !s.isAdmin(r.URL.Query().Get("user_id")) {
		respondError(w, http.StatusForbidden, "Access denied")
		return
	}
	onlyActive := r.URL.Query().Get("only_active") != "false"
	s.mu.Lock()
	agents := make([]api.Agent, 0, len(s.agents))
	for id := 1; id < s.nextID; id++ {
		a, ok := s.agents[id]
		if !ok || (onlyActive && !a.IsActive) {
			continue
		}
		agents = append(agents, a)
	}
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "agents": agents})
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var a api.Agent
	if !s.decode(w, r, &a) {
		return
	}
	if !s.isAdmin(strconv.Itoa(a.UserID)) {
		respondError(w, http.StatusForbidden, "Access denied")
		return
	}
	if a.Name == "" || a.PromptTemplate == "" {
		respondError(w, http.StatusBadRequest, "Name and prompt template are required")
		return
	}
	a.IsActive = true
	a = s.AddAgent(a)
	respondJSON(w, http.StatusCreated, map[string]any{"success": true, "agent": a})
}

func (s *Server) updateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid agent id")
		return
	}
	var a api.Agent
	if !s.decode(w, r, &a) {
		return
	}
	s.mu.Lock()
	old, ok := s.agents[id]
	if ok {
		a.ID = id
		a.IsActive = old.IsActive
		s.agents[id] = a
	}
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Agent not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "agent": a})
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid agent id")
		return
	}
	hard := r.URL.Query().Get("hard") == "true"
	s.mu.Lock()
	a, ok := s.agents[id]
	if ok {
		if hard {
			delete(s.agents, id)
		} else {
			a.IsActive = false
			s.agents[id] = a
		}
	}
	s.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "Agent not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Agent deleted"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
