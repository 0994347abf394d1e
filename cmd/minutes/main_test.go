package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/apitest"
	"github.com/jwulff/minutes/internal/db"
)

type cli struct {
	srv    *apitest.Server
	dir    string
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := fmt.Sprintf(`api:
  base_url: %s
capture:
  ffprobe_path: %s
paths:
  data_dir: %s
logging:
  level: error
`, srv.URL, filepath.Join(dir, "no-ffprobe"), dir)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MINUTES_API_URL", "")
	t.Setenv("MINUTES_DATA_DIR", "")
	return &cli{srv: srv, dir: dir, config: path}
}

// run executes one command line and returns its stdout.
func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := c.run(t, stdin, args...)
	if err != nil {
		t.Fatalf("minutes %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func (c *cli) login(t *testing.T, email string) {
	t.Helper()
	c.mustRun(t, "secret\n", "login", "--email", email)
}

func (c *cli) mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, []byte("ID3-audio"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return path
}

// lastRecordingID returns the short id of the newest history entry.
func (c *cli) lastRecordingID(t *testing.T) string {
	t.Helper()
	out := c.mustRun(t, "", "history")
	fields := strings.Fields(out)
	if len(fields) == 0 {
		t.Fatalf("empty history output")
	}
	return fields[0]
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun(t, "secret\n", "login", "--email", "admin@example.com")
	if !strings.Contains(out, "Signed in as Ada Admin [Admin]") {
		t.Errorf("login output = %q", out)
	}

	out = c.mustRun(t, "", "whoami")
	for _, want := range []string{"Ada Admin", "admin@example.com", "Admin"} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami output missing %q: %q", want, out)
		}
	}

	c.mustRun(t, "", "logout")
	if _, err := c.run(t, "", "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("whoami after logout err = %v, want errNotLoggedIn", err)
	}
}

func TestLoginPromptsForEmail(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun(t, "user@example.com\nsecret\n", "login")
	if !strings.Contains(out, "Uma User [User]") {
		t.Errorf("login output = %q", out)
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "secret\n", "login", "--email", "bad@example")
	if err == nil || err.Error() != "Please enter a valid email address." {
		t.Fatalf("err = %v, want invalid email", err)
	}
	if n := c.srv.Calls("POST", "/api/login"); n != 0 {
		t.Errorf("login calls = %d, want 0", n)
	}
}

func TestLoginServerError(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "wrong-pw\n", "login", "--email", "admin@example.com")
	if err == nil {
		t.Fatal("expected login error")
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Errorf("err = %T %v, want *api.Error", err, err)
	}
}

func TestProcessRequiresLogin(t *testing.T) {
	c := newCLI(t)
	path := c.mediaFile(t, "meeting.mp3")
	if _, err := c.run(t, "", "process", path); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("err = %v, want errNotLoggedIn", err)
	}
	if n := c.srv.UploadCount(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
}

func TestProcessHistoryExport(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	path := c.mediaFile(t, "meeting.mp3")

	out := c.mustRun(t, "", "process", path, "--lang", "es")
	for _, want := range []string{"SUMMARY", "Decisions", "Ship on Friday", "TRANSCRIPT", "Shall we ship on Friday?"} {
		if !strings.Contains(out, want) {
			t.Errorf("process output missing %q:\n%s", want, out)
		}
	}
	if got := c.srv.LastBody("/api/process")["language"]; got != "es" {
		t.Errorf("language = %v, want es", got)
	}

	hist := c.mustRun(t, "", "history")
	if !strings.Contains(hist, "meeting.mp3") || !strings.Contains(hist, "es") {
		t.Errorf("history = %q", hist)
	}
	id := c.lastRecordingID(t)

	md := c.mustRun(t, "", "export", id)
	for _, want := range []string{"# meeting.mp3", "## Summary", "## Transcript", "**S1:** Shall we ship on Friday?"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown export missing %q:\n%s", want, md)
		}
	}

	html := c.mustRun(t, "", "export", id, "--format", "html")
	if !strings.Contains(html, "<h1>meeting.mp3</h1>") || !strings.Contains(html, "<strong>S1:</strong>") {
		t.Errorf("html export = %q", html)
	}

	docx := filepath.Join(c.dir, "out", "meeting.docx")
	c.mustRun(t, "", "export", id, "--format", "docx", "-o", docx)
	if st, err := os.Stat(docx); err != nil || st.Size() == 0 {
		t.Errorf("docx not written: %v", err)
	}

	if _, err := c.run(t, "", "export", id, "--format", "pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestProcessRejectsInvalidFile(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	path := c.mediaFile(t, "notes.txt")

	if _, err := c.run(t, "", "process", path); err == nil {
		t.Fatal("expected error for a text file")
	}
	if n := c.srv.UploadCount(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
}

func TestProcessFailureReportsServerMessage(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	c.srv.Fail("/api/process", 500, "Transcription failed")

	_, err := c.run(t, "", "process", c.mediaFile(t, "meeting.mp3"))
	if err == nil || !strings.Contains(err.Error(), "Transcription failed") {
		t.Errorf("err = %v, want server message", err)
	}
}

func TestProcessWithAgent(t *testing.T) {
	c := newCLI(t)
	c.login(t, "admin@example.com")
	a := c.srv.AddAgent(api.Agent{Name: "Exec", Provider: "gemini", PromptTemplate: "Summarize", IsActive: true})

	c.mustRun(t, "", "process", c.mediaFile(t, "meeting.mp3"), "--agent", "exec", "--transcript=false")
	body := c.srv.LastBody("/api/process-with-agent")
	if got, want := body["agent_id"], float64(a.ID); got != want {
		t.Errorf("agent_id = %v, want %v", got, want)
	}
	if got := body["user_id"]; got != float64(1) {
		t.Errorf("user_id = %v, want 1", got)
	}
	if !strings.Contains(c.mustRun(t, "", "history"), "agent: Exec") {
		t.Error("history does not name the agent")
	}
}

func TestProcessAgentDeniedForUser(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	_, err := c.run(t, "", "process", c.mediaFile(t, "meeting.mp3"), "--agent", "1")
	if !errors.Is(err, errAccessDenied) {
		t.Errorf("err = %v, want access denied", err)
	}
}

func TestChat(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	c.mustRun(t, "", "process", c.mediaFile(t, "meeting.mp3"))
	id := c.lastRecordingID(t)

	out := c.mustRun(t, "", "chat", id, "What", "was", "decided?")
	if !strings.Contains(out, c.srv.ChatReply) {
		t.Errorf("chat output = %q", out)
	}
	if got := c.srv.LastBody("/api/chat")["message"]; got != "What was decided?" {
		t.Errorf("message = %v", got)
	}

	out = c.mustRun(t, "", "chat", id, "make the summary shorter")
	if !strings.Contains(out, "SUMMARY") || !strings.Contains(out, "Ship Friday") {
		t.Errorf("edit output = %q", out)
	}
	if got := c.srv.LastBody("/api/edit-summary")["current_summary"]; got != "# Decisions\n- Ship on Friday" {
		t.Errorf("current_summary = %v", got)
	}
}

func TestChatInteractive(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	c.mustRun(t, "", "process", c.mediaFile(t, "meeting.mp3"))
	id := c.lastRecordingID(t)

	c.mustRun(t, "first question\nsecond question\n\n", "chat", id)
	if n := c.srv.Calls("POST", "/api/chat"); n != 2 {
		t.Errorf("chat calls = %d, want 2", n)
	}
}

func TestChatUnknownRecording(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	if _, err := c.run(t, "", "chat", "nope", "hi"); err == nil {
		t.Error("expected error for unknown recording")
	}
}

func TestHistoryIsPerUser(t *testing.T) {
	c := newCLI(t)
	c.login(t, "admin@example.com")
	c.mustRun(t, "", "process", c.mediaFile(t, "board-secret.mp3"))
	id := c.lastRecordingID(t)
	c.mustRun(t, "", "logout")

	c.login(t, "user@example.com")
	hist := c.mustRun(t, "", "history")
	if strings.Contains(hist, "board-secret.mp3") {
		t.Fatalf("history leaked another user's recording:\n%s", hist)
	}
	if !strings.Contains(hist, "No recordings yet.") {
		t.Errorf("history = %q", hist)
	}
	for _, args := range [][]string{
		{"export", id},
		{"chat", id, "What was decided?"},
	} {
		if _, err := c.run(t, "", args...); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("minutes %s: err = %v, want ErrNotFound", args[0], err)
		}
	}
	if n := c.srv.Calls("POST", "/api/chat"); n != 0 {
		t.Errorf("chat calls = %d, want 0", n)
	}

	c.mustRun(t, "", "logout")
	c.login(t, "admin@example.com")
	if !strings.Contains(c.mustRun(t, "", "history"), "board-secret.mp3") {
		t.Error("owner should still see the recording")
	}
}

func TestAgentsLifecycle(t *testing.T) {
	c := newCLI(t)
	c.login(t, "admin@example.com")

	out := c.mustRun(t, "", "agents", "list")
	if !strings.Contains(out, "No agents configured yet.") {
		t.Errorf("empty list = %q", out)
	}

	out = c.mustRun(t, "", "agents", "create", "--name", "Exec", "--description", "Executive brief", "--prompt", "Summarize for executives")
	if !strings.Contains(out, "Created agent 1 (Exec)") {
		t.Errorf("create output = %q", out)
	}
	if got := c.srv.LastBody("/api/agents")["provider"]; got != "gemini" {
		t.Errorf("provider = %v, want gemini", got)
	}

	out = c.mustRun(t, "", "agents", "list")
	for _, want := range []string{"NAME", "PROVIDER", "MODEL", "STATUS", "Exec", "gemini", "Default", "Active", "Executive brief"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	c.mustRun(t, "", "agents", "update", "1", "--model", "gpt-4o", "--provider", "openai")
	out = c.mustRun(t, "", "agents", "list")
	if !strings.Contains(out, "gpt-4o") || !strings.Contains(out, "openai") {
		t.Errorf("list after update = %q", out)
	}

	if _, err := c.run(t, "", "agents", "update", "1", "--provider", "claude"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := c.run(t, "", "agents", "create", "--name", "NoPrompt"); err == nil {
		t.Error("expected error without a prompt")
	}

	c.mustRun(t, "", "agents", "delete", "1")
	out = c.mustRun(t, "", "agents", "list")
	if !strings.Contains(out, "No agents configured yet.") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestAgentsAccessDenied(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	_, err := c.run(t, "", "agents", "list")
	if err == nil || err.Error() != "Access denied. Only administrators can manage agents." {
		t.Errorf("err = %v", err)
	}
	if n := c.srv.Calls("GET", "/api/agents"); n != 0 {
		t.Errorf("agents calls = %d, want 0", n)
	}
}

func TestPasswd(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		fail    string
		wantErr string
	}{
		{name: "success", stdin: "secret\nnewpass\nnewpass\n"},
		{name: "mismatch", stdin: "secret\nnewpass\nother\n", wantErr: "New passwords do not match"},
		{name: "too short", stdin: "secret\nabc\nabc\n", wantErr: "New password must be at least 4 characters long."},
		{name: "wrong current", stdin: "nope\nnewpass\nnewpass\n", fail: "Current password is incorrect", wantErr: "Current password is incorrect"},
		{name: "server error", stdin: "secret\nnewpass\nnewpass\n", fail: "database locked", wantErr: "An error occurred while changing password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			c.login(t, "user@example.com")
			if tt.fail != "" {
				c.srv.Fail("/api/change-password", 400, tt.fail)
			}
			out, err := c.run(t, tt.stdin, "passwd")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("passwd: %v", err)
				}
				if !strings.Contains(out, "Password changed successfully") {
					t.Errorf("output = %q", out)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun(t, "", "health")
	if !strings.Contains(out, "healthy") {
		t.Errorf("health output = %q", out)
	}

	c.srv.Close()
	if _, err := c.run(t, "", "health"); err == nil {
		t.Error("expected error when the API is down")
	}
}

func TestRecordRejectsUnknownType(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	if _, err := c.run(t, "", "record", "--type", "radio"); err == nil {
		t.Error("expected error for unknown recording type")
	}
}

func TestSystemRecordAndProcess(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")

	out := c.mustRun(t, "\n", "record", "--type", "system")
	if !strings.Contains(out, "Ship on Friday") {
		t.Errorf("record output = %q", out)
	}
	if got := c.srv.LastBody("/api/start-system-recording")["type"]; got != "system" {
		t.Errorf("type = %v, want system", got)
	}
	if n := c.srv.Calls("POST", "/api/stop-system-recording"); n != 1 {
		t.Errorf("stop calls = %d, want 1", n)
	}
}

func TestWatchNeedsDirectories(t *testing.T) {
	c := newCLI(t)
	c.login(t, "user@example.com")
	if _, err := c.run(t, "", "watch"); err == nil {
		t.Error("expected error without --inbox and --out")
	}
}

func openTestEnv(t *testing.T, c *cli) *env {
	t.Helper()
	configPath = c.config
	logLevel = ""
	e, err := openEnv(&cobra.Command{}, envOptions{})
	if err != nil {
		t.Fatalf("open env: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestMCPTools(t *testing.T) {
	c := newCLI(t)
	e := openTestEnv(t, c)
	ctx := context.Background()
	u, err := e.gate.Login(ctx, "user@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	tools := &mcpTools{env: e, user: u}
	newMCPServer(tools)

	res, err := tools.listHistory(ctx, callTool("list_history", nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := toolText(t, res); got != "No recordings yet." {
		t.Errorf("empty history = %q", got)
	}

	res, err = tools.processFile(ctx, callTool("process_file", map[string]any{"path": c.mediaFile(t, "standup.mp3")}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("process_file error: %s", toolText(t, res))
	}
	if doc := toolText(t, res); !strings.Contains(doc, "# standup.mp3") || !strings.Contains(doc, "Ship on Friday") {
		t.Errorf("process_file = %q", doc)
	}

	res, _ = tools.listHistory(ctx, callTool("list_history", map[string]any{"limit": 5}))
	list := toolText(t, res)
	if !strings.Contains(list, "standup.mp3") {
		t.Fatalf("list_history = %q", list)
	}
	id := strings.Fields(list)[1]

	res, _ = tools.askTranscript(ctx, callTool("ask_transcript", map[string]any{"recording_id": id, "question": "When do we ship?"}))
	if got := toolText(t, res); got != c.srv.ChatReply {
		t.Errorf("ask_transcript = %q, want %q", got, c.srv.ChatReply)
	}

	other := &mcpTools{env: e, user: api.User{ID: 1, Email: "admin@example.com"}}
	res, _ = other.listHistory(ctx, callTool("list_history", nil))
	if got := toolText(t, res); got != "No recordings yet." {
		t.Errorf("list_history for another user = %q", got)
	}
	res, _ = other.askTranscript(ctx, callTool("ask_transcript", map[string]any{"recording_id": id, "question": "When do we ship?"}))
	if !res.IsError {
		t.Error("ask_transcript must not read another user's recording")
	}

	res, _ = tools.processFile(ctx, callTool("process_file", map[string]any{}))
	if !res.IsError {
		t.Error("process_file without path should fail")
	}
}
