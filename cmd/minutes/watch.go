package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/metrics"
	"github.com/jwulff/minutes/internal/orchestrator"
	"github.com/jwulff/minutes/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		inbox       string
		outDir      string
		docx        bool
		metricsAddr string
		concurrency int
		language    string
		agent       string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process media files dropped into an inbox directory",
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

			w := e.cfg.Watch
			if cmd.Flags().Changed("inbox") || w.Inbox == "" {
				w.Inbox = inbox
			}
			if cmd.Flags().Changed("out") || w.Output == "" {
				w.Output = outDir
			}
			if cmd.Flags().Changed("docx") {
				w.Docx = docx
			}
			if cmd.Flags().Changed("metrics-addr") {
				w.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("concurrency") {
				w.MaxConcurrent = concurrency
			}
			if w.Inbox == "" || w.Output == "" {
				return errors.New("watch needs --inbox and --out (or watch.inbox and watch.output in the config)")
			}
			if err := os.MkdirAll(w.Inbox, 0o755); err != nil {
				return fmt.Errorf("create inbox: %w", err)
			}

			opts := orchestrator.Options{Language: language, UserID: u.ID}
			if opts.Language == "" {
				opts.Language = e.cfg.API.Language
			}
			if agent != "" {
				a, err := resolveAgent(cmd.Context(), e.client, u, agent)
				if err != nil {
					return err
				}
				opts.AgentID, opts.AgentName = a.ID, a.Name
			}

			pub := watcher.NewPublisher(e.newFlow, opts, w.Output, w.Docx, e.log)
			wt, err := watcher.New(w.Inbox, pub.Handle, e.log, w.MaxConcurrent)
			if err != nil {
				return err
			}
			defer wt.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if w.MetricsAddr != "" {
				go func() {
					if err := metrics.Serve(ctx, w.MetricsAddr); err != nil {
						e.log.Error(ctx, "metrics server: %v", err)
					}
				}()
				e.log.Info(ctx, "Serving metrics on %s", w.MetricsAddr)
			}

			err = wt.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&inbox, "inbox", "", "directory to watch for new media files")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for the generated documents")
	cmd.Flags().BoolVar(&docx, "docx", false, "also write a .docx next to each .md")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "files processed at once (config default when 0)")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "transcription language (en, es)")
	cmd.Flags().StringVarP(&agent, "agent", "a", "", "summarize with this agent (id or name, administrators only)")
	return cmd
}
