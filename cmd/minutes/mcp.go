package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/markdown"
	"github.com/jwulff/minutes/internal/media"
	"github.com/jwulff/minutes/internal/orchestrator"
)

const version = "0.1.0"

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve minutes tools to AI assistants over stdio (MCP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.user()
			if err != nil {
				return err
			}
			s := newMCPServer(&mcpTools{env: e, user: u})
			return server.NewStdioServer(s).Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// mcpTools answers tool calls for the signed-in user.
type mcpTools struct {
	env  *env
	user api.User
}

func newMCPServer(t *mcpTools) *server.MCPServer {
	s := server.NewMCPServer("minutes", version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("process_file",
		mcp.WithDescription("Transcribe and summarize a local audio or video file. Returns the summary and transcript as markdown."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the media file")),
		mcp.WithString("language", mcp.Description("Transcription language: en or es")),
	), t.processFile)

	s.AddTool(mcp.NewTool("ask_transcript",
		mcp.WithDescription("Ask a question about a processed recording from history."),
		mcp.WithString("recording_id", mcp.Required(), mcp.Description("Recording id or unique id prefix from list_history")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question about the meeting")),
	), t.askTranscript)

	s.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List the signed-in user's processed recordings, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of recordings (default 20)")),
	), t.listHistory)

	return s
}

func (t *mcpTools) processFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lang := req.GetString("language", t.env.cfg.API.Language)

	flow := t.env.newFlow()
	defer flow.Clear()
	if _, err := flow.Stage(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := flow.Process(ctx, orchestrator.Options{Language: lang, UserID: t.user.ID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(markdown.Document(filepath.Base(path), res.SummaryText(), turnsOf(res.Dialogues), res.Transcription)), nil
}

func (t *mcpTools) askTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("recording_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := t.env.store.Recording(t.user.ID, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conv := t.env.newChat()
	conv.Reset(resultOf(rec))
	reply, err := conv.Send(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if reply.Edit {
		return mcp.NewToolResultText(reply.Summary), nil
	}
	return mcp.NewToolResultText(reply.Message.Content), nil
}

func (t *mcpTools) listHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	recs, err := t.env.store.Recordings(t.user.ID, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(recs) == 0 {
		return mcp.NewToolResultText("No recordings yet."), nil
	}
	var b strings.Builder
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s %s (%s, %s, %s)\n", r.ID, r.FileName,
			r.CreatedAt.Format("2006-01-02 15:04"), r.Language, media.FormatDuration(r.Duration, r.Duration > 0))
	}
	return mcp.NewToolResultText(b.String()), nil
}
