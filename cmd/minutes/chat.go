package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/chat"
	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/markdown"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <recording-id> [message]",
		Short: "Ask about a processed recording or edit its summary",
		Long: `chat sends one message about a recording from history, or starts an
interactive session when no message is given. Messages such as "make the
summary shorter" edit the summary instead of asking a question.`,
		Args: cobra.MinimumNArgs(1),
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
			rec, err := e.store.Recording(u.ID, args[0])
			if err != nil {
				return err
			}

			conv := e.newChat()
			conv.Reset(resultOf(rec))
			if !conv.Ready() {
				return chat.ErrNoTranscript
			}
			width := termWidth(cmd, 80)

			if len(args) > 1 {
				return sendChat(cmd, conv, strings.Join(args[1:], " "), width)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Chatting about %s. Empty line or Ctrl-D to quit.\n", rec.FileName)
			p := newPrompter(cmd)
			for {
				line, err := p.line("You: ")
				if errors.Is(err, io.EOF) || (err == nil && strings.TrimSpace(line) == "") {
					return nil
				}
				if err != nil {
					return err
				}
				if err := sendChat(cmd, conv, line, width); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}
		},
	}
}

func sendChat(cmd *cobra.Command, conv *chat.Conversation, text string, width int) error {
	reply, err := conv.Send(cmd.Context(), text)
	if reply.Message.Content != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Assistant:")
		fmt.Fprintln(cmd.OutOrStdout(), markdown.ToTerminal(reply.Message.Content, width))
	}
	if err != nil {
		return err
	}
	if reply.Edit {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "SUMMARY")
		fmt.Fprintln(cmd.OutOrStdout(), markdown.ToTerminal(reply.Summary, width))
	}
	return nil
}

// resultOf rebuilds the processing result a history entry was saved from.
func resultOf(rec db.Recording) api.Result {
	res := api.Result{
		Success:       true,
		Transcription: rec.Transcript,
	}
	if rec.Summary != "" {
		res.SpeechmaticsSummary = &api.SpeechmaticsSummary{Content: rec.Summary}
	}
	for _, d := range rec.Dialogues {
		res.Dialogues = append(res.Dialogues, api.Dialogue{Speaker: d.Speaker, Text: d.Text})
	}
	return res
}
