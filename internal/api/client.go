package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/metrics"
)

// Error is a non-2xx response. Message is the server's "error" field when
// present, otherwise the per-call fallback text, and is meant to be shown
// to the user verbatim.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Client talks to the summarization API. It holds no per-request state and
// is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger
}

// NewHTTPClient returns an http.Client with pooled connections. A zero
// timeout means requests are never cut off client-side.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// New creates a Client for baseURL (for example http://localhost:5000).
func New(baseURL string, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &Client{baseURL: baseURL, http: httpClient, log: log}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends req and decodes a 2xx JSON body into out. endpoint labels
// metrics; fallback is the message used when an error body carries none.
func (c *Client) do(req *http.Request, endpoint, fallback string, out any) error {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		apiErr := decodeError(resp, fallback)
		c.log.Warn(req.Context(), "%s %s: %d %s", req.Method, endpoint, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

func decodeError(resp *http.Response, fallback string) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := fallback
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Error != "" {
			msg = envelope.Error
		} else if envelope.Message != "" {
			msg = envelope.Message
		}
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", path, err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) postJSON(ctx context.Context, path, fallback string, in, out any) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	return c.do(req, path, fallback, out)
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/health", nil)
	if err != nil {
		return Health{}, err
	}
	var h Health
	if err := c.do(req, "/api/health", "Server is not healthy", &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// Login calls POST /api/login. A 2xx body with success=false is returned as
// an *Error carrying the server message.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp LoginResponse
	if err := c.postJSON(ctx, "/api/login", "Login failed", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return User{}, err
	}
	if !resp.Success || resp.User == nil {
		msg := resp.Error
		if msg == "" {
			msg = "Login failed"
		}
		return User{}, &Error{Status: http.StatusOK, Message: msg}
	}
	return *resp.User, nil
}

// ChangePassword calls POST /api/change-password.
func (c *Client) ChangePassword(ctx context.Context, in ChangePasswordRequest) error {
	var resp successResponse
	if err := c.postJSON(ctx, "/api/change-password", "Failed to change password", in, &resp); err != nil {
		return err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Failed to change password"
		}
		return &Error{Status: http.StatusOK, Message: msg}
	}
	return nil
}

// Upload sends the file as multipart field "audio" to POST /api/upload and
// returns the server's opaque file id.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("audio", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		pr.Close()
		return UploadResponse{}, fmt.Errorf("build /api/upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp UploadResponse
	if err := c.do(req, "/api/upload", "Failed to upload file", &resp); err != nil {
		pr.Close()
		return UploadResponse{}, err
	}
	if resp.FileID == "" {
		return UploadResponse{}, &Error{Status: http.StatusOK, Message: "Failed to upload file"}
	}
	return resp, nil
}

// Process calls POST /api/process.
func (c *Client) Process(ctx context.Context, fileID, language string) (Result, error) {
	var res Result
	in := ProcessRequest{FileID: fileID, Language: language}
	if err := c.postJSON(ctx, "/api/process", "Failed to process audio", in, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ProcessWithAgent calls POST /api/process-with-agent.
func (c *Client) ProcessWithAgent(ctx context.Context, fileID, language string, agentID, userID int) (Result, error) {
	var res Result
	in := ProcessRequest{FileID: fileID, Language: language, AgentID: agentID, UserID: userID}
	if err := c.postJSON(ctx, "/api/process-with-agent", "Failed to process audio", in, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// Chat calls POST /api/chat with the transcript as context.
func (c *Client) Chat(ctx context.Context, message, transcript string) (string, error) {
	var resp ChatResponse
	in := ChatRequest{Message: message, Context: transcript}
	if err := c.postJSON(ctx, "/api/chat", "Error processing message", in, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// EditSummary calls POST /api/edit-summary.
func (c *Client) EditSummary(ctx context.Context, instruction, currentSummary, transcript string) (string, error) {
	var resp EditSummaryResponse
	in := EditSummaryRequest{Instruction: instruction, CurrentSummary: currentSummary, Context: transcript}
	if err := c.postJSON(ctx, "/api/edit-summary", "Error editing summary", in, &resp); err != nil {
		return "", err
	}
	return resp.EditedSummary, nil
}

// StartSystemRecording asks the server to capture system audio ("system")
// or system audio mixed with its microphone ("both").
func (c *Client) StartSystemRecording(ctx context.Context, recordingType string) error {
	in := SystemRecordingRequest{Type: recordingType}
	return c.postJSON(ctx, "/api/start-system-recording", "Failed to start recording", in, nil)
}

// StopSystemRecording ends a server-side recording.
func (c *Client) StopSystemRecording(ctx context.Context) (SystemRecording, error) {
	var rec SystemRecording
	if err := c.postJSON(ctx, "/api/stop-system-recording", "Failed to stop recording", struct{}{}, &rec); err != nil {
		return SystemRecording{}, err
	}
	return rec, nil
}

// Download streams GET /uploads/{fileID} into w and returns the byte count.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	path := "/uploads/" + url.PathEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build download: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues("/uploads").Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues("/uploads").Inc()
		return 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.APIErrors.WithLabelValues("/uploads").Inc()
		return 0, decodeError(resp, "Failed to download recording")
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download: %w", err)
	}
	return n, nil
}

// ListAgents calls GET /api/agents for the user.
func (c *Client) ListAgents(ctx context.Context, userID int, onlyActive bool) ([]Agent, error) {
	q := url.Values{}
	q.Set("user_id", strconv.Itoa(userID))
	q.Set("only_active", strconv.FormatBool(onlyActive))

	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/agents?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp agentsResponse
	if err := c.do(req, "/api/agents", "Failed to load agents", &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{Status: http.StatusOK, Message: fallback(resp.Error, "Failed to load agents")}
	}
	return resp.Agents, nil
}

// CreateAgent calls POST /api/agents.
func (c *Client) CreateAgent(ctx context.Context, a Agent) (Agent, error) {
	var resp agentResponse
	if err := c.postJSON(ctx, "/api/agents", "Failed to save agent", a, &resp); err != nil {
		return Agent{}, err
	}
	if !resp.Success {
		return Agent{}, &Error{Status: http.StatusOK, Message: fallback(resp.Error, "Failed to save agent")}
	}
	if resp.Agent != nil {
		return *resp.Agent, nil
	}
	return a, nil
}

// UpdateAgent calls PUT /api/agents/{id}.
func (c *Client) UpdateAgent(ctx context.Context, id int, a Agent) (Agent, error) {
	path := "/api/agents/" + strconv.Itoa(id)
	req, err := c.newJSONRequest(ctx, http.MethodPut, path, a)
	if err != nil {
		return Agent{}, err
	}
	var resp agentResponse
	if err := c.do(req, "/api/agents/{id}", "Failed to save agent", &resp); err != nil {
		return Agent{}, err
	}
	if !resp.Success {
		return Agent{}, &Error{Status: http.StatusOK, Message: fallback(resp.Error, "Failed to save agent")}
	}
	if resp.Agent != nil {
		return *resp.Agent, nil
	}
	a.ID = id
	return a, nil
}

// DeleteAgent calls DELETE /api/agents/{id}. hard removes the row instead of
// deactivating it.
func (c *Client) DeleteAgent(ctx context.Context, id, userID int, hard bool) error {
	q := url.Values{}
	q.Set("user_id", strconv.Itoa(userID))
	q.Set("hard", strconv.FormatBool(hard))
	path := "/api/agents/" + strconv.Itoa(id) + "?" + q.Encode()

	req, err := c.newJSONRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	var resp successResponse
	if err := c.do(req, "/api/agents/{id}", "Failed to delete agent", &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &Error{Status: http.StatusOK, Message: fallback(resp.Error, "Failed to delete agent")}
	}
	return nil
}

func fallback(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
