package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/apitest"
	"github.com/jwulff/minutes/internal/logger"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		msg  string
		edit bool
	}{
		{"make it shorter", true},
		{"Make It Shorter", true},
		{"Translate the summary to Spanish", true},
		{"hazlo más corto", true},
		{"Extract the action items", true},
		{"What was decided about the budget?", false},
		{"Who spoke first?", false},
		{"", false},
	}
	c := KeywordClassifier{}
	for _, tt := range tests {
		if got := c.IsEditInstruction(tt.msg); got != tt.edit {
			t.Errorf("IsEditInstruction(%q) = %v, want %v", tt.msg, got, tt.edit)
		}
	}
}

func newTestConversation(t *testing.T) (*Conversation, *apitest.Server) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	client := api.New(srv.URL, api.NewHTTPClient(5*time.Second), logger.Nop())
	c := New(client, nil, logger.Nop())
	c.Reset(srv.Result)
	return c, srv
}

func TestSendQuestion(t *testing.T) {
	c, srv := newTestConversation(t)

	reply, err := c.Send(context.Background(), "  What was decided about the budget?  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Edit {
		t.Error("question routed as edit")
	}
	if reply.Message.Content != srv.ChatReply {
		t.Errorf("reply = %q, want %q", reply.Message.Content, srv.ChatReply)
	}
	body := srv.LastBody("/api/chat")
	if body["message"] != "What was decided about the budget?" || body["context"] != srv.Result.Transcription {
		t.Errorf("chat body = %v", body)
	}

	msgs := c.Messages()
	if len(msgs) != 2 || msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Error("messages need distinct ids")
	}
}

func TestSendEdit(t *testing.T) {
	c, srv := newTestConversation(t)

	reply, err := c.Send(context.Background(), "make it shorter")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !reply.Edit || reply.Summary != srv.EditReply {
		t.Errorf("reply = %+v", reply)
	}
	if want := "I have updated the summary based on your instruction. You can see the changes above."; reply.Message.Content != want {
		t.Errorf("confirmation = %q", reply.Message.Content)
	}
	if got := srv.LastBody("/api/edit-summary")["current_summary"]; got != srv.Result.SpeechmaticsSummary.Content {
		t.Errorf("current_summary = %v", got)
	}
	if c.Summary() != srv.EditReply {
		t.Errorf("Summary() = %q, want edited", c.Summary())
	}
	if n := srv.Calls("POST", "/api/chat"); n != 0 {
		t.Errorf("chat calls = %d, want 0", n)
	}

	// the next edit works on the edited summary
	c.Send(context.Background(), "add the owners")
	if got := srv.LastBody("/api/edit-summary")["current_summary"]; got != srv.EditReply {
		t.Errorf("second current_summary = %v", got)
	}
}

func TestSendEditWithoutSummary(t *testing.T) {
	c, srv := newTestConversation(t)
	res := srv.Result
	res.SpeechmaticsSummary = nil
	c.Reset(res)

	if _, err := c.Send(context.Background(), "make it shorter"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := srv.LastBody("/api/edit-summary")["current_summary"]; got != NoSummary {
		t.Errorf("current_summary = %v, want %q", got, NoSummary)
	}
}

func TestSendPreconditions(t *testing.T) {
	c, srv := newTestConversation(t)

	if _, err := c.Send(context.Background(), "   "); err != ErrEmptyMessage {
		t.Errorf("blank err = %v", err)
	}

	c.Reset(api.Result{})
	_, err := c.Send(context.Background(), "hello")
	if err != ErrNoTranscript {
		t.Errorf("no transcript err = %v", err)
	}
	if err.Error() != "Please process an audio file first before using the chat." {
		t.Errorf("message = %q", err.Error())
	}
	if n := srv.Calls("POST", "/api/chat"); n != 0 {
		t.Errorf("chat calls = %d, want 0", n)
	}
	if len(c.Messages()) != 0 {
		t.Error("rejected sends should not be recorded")
	}
}

func TestSendRemoteError(t *testing.T) {
	c, srv := newTestConversation(t)
	srv.Fail("/api/chat", http.StatusInternalServerError, "quota exceeded")

	reply, err := c.Send(context.Background(), "Who attended?")
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Sorry, I encountered an error: quota exceeded. Please make sure the summarization service is configured."
	if reply.Message.Content != want {
		t.Errorf("reply = %q, want %q", reply.Message.Content, want)
	}
	msgs := c.Messages()
	if len(msgs) != 2 || msgs[1].Content != want {
		t.Errorf("apology not appended: %+v", msgs)
	}
	if c.Busy() {
		t.Error("busy flag should be cleared")
	}
}

func TestSendEditErrorKeepsSummary(t *testing.T) {
	c, srv := newTestConversation(t)
	srv.Fail("/api/edit-summary", http.StatusInternalServerError, "")

	before := c.Summary()
	if _, err := c.Send(context.Background(), "make it shorter"); err == nil {
		t.Fatal("expected error")
	}
	if c.Summary() != before {
		t.Errorf("summary changed on failure: %q", c.Summary())
	}
	msgs := c.Messages()
	if !strings.Contains(msgs[len(msgs)-1].Content, "Error editing summary") {
		t.Errorf("apology should carry fallback message: %q", msgs[len(msgs)-1].Content)
	}
}

func TestSendBusy(t *testing.T) {
	c, srv := newTestConversation(t)
	srv.BlockChat = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "Who attended?")
		done <- err
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !c.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := c.Send(context.Background(), "And then?"); !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Send err = %v, want ErrBusy", err)
	}

	close(srv.BlockChat)
	if err := <-done; err != nil {
		t.Fatalf("first Send: %v", err)
	}
}

type alwaysEdit struct{}

func (alwaysEdit) IsEditInstruction(string) bool { return true }

func TestPluggableClassifier(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	c := New(api.New(srv.URL, nil, logger.Nop()), alwaysEdit{}, logger.Nop())
	c.Reset(srv.Result)

	reply, err := c.Send(context.Background(), "Who attended?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !reply.Edit {
		t.Error("custom classifier ignored")
	}
}
