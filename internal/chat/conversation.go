// Package chat routes follow-up messages about a processed meeting to the
// question-answering or summary-editing endpoint.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/logger"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoTranscript = errors.New("Please process an audio file first before using the chat.")
	ErrBusy         = errors.New("a message is already being answered")
)

const (
	// NoSummary is sent as the current summary when the result has none.
	NoSummary = "No summary available yet."

	editConfirmation = "I have updated the summary based on your instruction. You can see the changes above."
	errorReply       = "Sorry, I encountered an error: %s. Please make sure the summarization service is configured."
)

// Role is who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. Assistant content is markdown.
type Message struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// Backend is the API surface chat needs.
type Backend interface {
	Chat(ctx context.Context, message, transcript string) (string, error)
	EditSummary(ctx context.Context, instruction, currentSummary, transcript string) (string, error)
}

// Reply is the outcome of Send.
type Reply struct {
	Message Message
	Edit    bool
	// Summary is the new summary after an edit.
	Summary string
}

// Conversation is the chat attached to the current result.
type Conversation struct {
	backend    Backend
	classifier Classifier
	log        logger.Logger

	mu         sync.RWMutex
	transcript string
	summary    string
	messages   []Message
	busy       bool
}

// New creates an empty Conversation. A nil classifier means KeywordClassifier.
func New(backend Backend, classifier Classifier, log logger.Logger) *Conversation {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Conversation{backend: backend, classifier: classifier, log: log}
}

// Reset attaches the conversation to a new result and drops old messages.
func (c *Conversation) Reset(res api.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = res.Transcription
	c.summary = ""
	if res.SpeechmaticsSummary != nil {
		c.summary = res.SpeechmaticsSummary.Content
	}
	c.messages = nil
}

// Ready reports whether there is a transcript to chat about.
func (c *Conversation) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transcript != ""
}

// Busy reports whether a Send is outstanding.
func (c *Conversation) Busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy
}

// Summary returns the current summary, including edits.
func (c *Conversation) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// IsEdit reports how text would be routed.
func (c *Conversation) IsEdit(text string) bool {
	return c.classifier.IsEditInstruction(text)
}

// Send posts text and appends both the user message and the reply. On a
// remote failure an apology is appended as the reply and the error is
// returned as well.
func (c *Conversation) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.transcript == "" {
		c.mu.Unlock()
		return Reply{}, ErrNoTranscript
	}
	if c.busy {
		c.mu.Unlock()
		return Reply{}, ErrBusy
	}
	c.busy = true
	transcript := c.transcript
	current := c.summary
	c.messages = append(c.messages, newMessage(RoleUser, text))
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	edit := c.classifier.IsEditInstruction(text)
	var (
		reply Reply
		err   error
	)
	if edit {
		reply, err = c.edit(ctx, text, current, transcript)
	} else {
		reply, err = c.ask(ctx, text, transcript)
	}
	if err != nil {
		c.log.Error(ctx, "chat (edit=%v): %v", edit, err)
		reply = Reply{Message: newMessage(RoleAssistant, fmt.Sprintf(errorReply, err.Error())), Edit: edit}
	}

	c.mu.Lock()
	if reply.Edit && err == nil {
		c.summary = reply.Summary
	}
	c.messages = append(c.messages, reply.Message)
	c.mu.Unlock()
	return reply, err
}

func (c *Conversation) edit(ctx context.Context, instruction, current, transcript string) (Reply, error) {
	if current == "" {
		current = NoSummary
	}
	edited, err := c.backend.EditSummary(ctx, instruction, current, transcript)
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Message: newMessage(RoleAssistant, editConfirmation),
		Edit:    true,
		Summary: edited,
	}, nil
}

func (c *Conversation) ask(ctx context.Context, question, transcript string) (Reply, error) {
	answer, err := c.backend.Chat(ctx, question, transcript)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Message: newMessage(RoleAssistant, answer)}, nil
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
