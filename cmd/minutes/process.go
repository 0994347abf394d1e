package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/api"
	"github.com/jwulff/minutes/internal/markdown"
	"github.com/jwulff/minutes/internal/media"
	"github.com/jwulff/minutes/internal/orchestrator"
	"github.com/jwulff/minutes/internal/roles"
)

var errAccessDenied = errors.New("Access denied. Only administrators can manage agents.")

type processFlags struct {
	language   string
	agent      string
	transcript bool
}

func (f *processFlags) register(cmd *cobra.Command, defaultLang string) {
	cmd.Flags().StringVarP(&f.language, "lang", "l", defaultLang, "transcription language (en, es)")
	cmd.Flags().StringVarP(&f.agent, "agent", "a", "", "summarize with this agent (id or name, administrators only)")
	cmd.Flags().BoolVar(&f.transcript, "transcript", true, "print the transcript after the summary")
}

func newProcessCmd() *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Upload an audio or video file and print its summary and transcript",
		Args:  cobra.ExactArgs(1),
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
			flow := e.newFlow()
			defer flow.Clear()

			st, err := flow.Stage(cmd.Context(), cleanArg(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Ready to process %s (%s, %s)\n",
				st.Name, media.FormatFileSize(st.Size), media.FormatDuration(st.Duration, st.DurationKnown))

			return processStaged(cmd, e, flow, u, flags)
		},
	}

	flags.register(cmd, "")
	return cmd
}

// processStaged runs the staged file through the API while a rotating
// status line is shown on stderr, then prints the result.
func processStaged(cmd *cobra.Command, e *env, flow *orchestrator.Orchestrator, u api.User, flags processFlags) error {
	ctx := cmd.Context()
	opts := orchestrator.Options{Language: flags.language, UserID: u.ID}
	if opts.Language == "" {
		opts.Language = e.cfg.API.Language
	}
	if flags.agent != "" {
		a, err := resolveAgent(ctx, e.client, u, flags.agent)
		if err != nil {
			return err
		}
		opts.AgentID, opts.AgentName = a.ID, a.Name
	}

	statusCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.RotateStatus(statusCtx, orchestrator.StatusInterval, func(s string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "⟳ %s\n", s)
		})
	}()
	res, err := flow.Process(ctx, opts)
	stop()
	<-done
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res, termWidth(cmd, 80), flags.transcript)
	return nil
}

// resolveAgent finds an active agent by id or case-insensitive name.
func resolveAgent(ctx context.Context, client *api.Client, u api.User, ref string) (api.Agent, error) {
	if !roles.FromInt(u.Role).CanManageAgents() {
		return api.Agent{}, errAccessDenied
	}
	agents, err := client.ListAgents(ctx, u.ID, true)
	if err != nil {
		return api.Agent{}, err
	}
	id, idErr := strconv.Atoi(ref)
	for _, a := range agents {
		if (idErr == nil && a.ID == id) || strings.EqualFold(a.Name, ref) {
			return a, nil
		}
	}
	return api.Agent{}, fmt.Errorf("no active agent %q", ref)
}

func printResult(w io.Writer, res api.Result, width int, transcript bool) {
	summary := res.SummaryText()
	if summary == "" {
		summary = "No summary available yet."
	}
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w)
	fmt.Fprintln(w, markdown.ToTerminal(summary, width))
	if !transcript {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "TRANSCRIPT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, markdown.ToTerminal(markdown.Transcript(turnsOf(res.Dialogues), res.Transcription), width))
}

func turnsOf(ds []api.Dialogue) []markdown.Turn {
	turns := make([]markdown.Turn, 0, len(ds))
	for _, d := range ds {
		turns = append(turns, markdown.Turn{Speaker: d.Speaker, Text: d.Text})
	}
	return turns
}

// cleanArg strips quotes left over from drag-and-drop paths.
func cleanArg(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
