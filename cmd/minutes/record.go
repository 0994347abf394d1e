package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/capture"
	"github.com/jwulff/minutes/internal/media"
)

func newRecordCmd() *cobra.Command {
	var (
		typeName string
		process  bool
		flags    processFlags
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record until Enter or Ctrl-C, then optionally process the recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := capture.ParseType(typeName)
			if err != nil {
				return err
			}
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			u, err := e.user()
			if err != nil {
				return err
			}

			src := e.newSource(typ)
			ctx := cmd.Context()
			if err := src.Start(ctx); err != nil {
				return err
			}
			defer src.Cancel()
			fmt.Fprintf(cmd.ErrOrStderr(), "● REC %s  (press Enter to stop)\n", typ)

			waitForStop(ctx, cmd)

			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			blob, err := src.Stop(stopCtx)
			if err != nil {
				return fmt.Errorf("Error stopping recording: %w", err)
			}

			flow := e.newFlow()
			defer flow.Clear()
			st, err := flow.StageBlob(ctx, blob)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Recorded %s (%s, %s)\n",
				st.Name, media.FormatFileSize(st.Size), media.FormatDuration(st.Duration, st.DurationKnown))

			if !process {
				return keepRecording(cmd, st.Path, st.Name)
			}
			return processStaged(cmd, e, flow, u, flags)
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", string(capture.TypeMicrophone), "recording source (microphone, system, both)")
	cmd.Flags().BoolVarP(&process, "process", "p", true, "process the recording when it stops")
	flags.register(cmd, "")
	return cmd
}

// waitForStop returns on Enter, SIGINT/SIGTERM or when ctx ends.
func waitForStop(ctx context.Context, cmd *cobra.Command) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enter := make(chan struct{})
	go func() {
		p := newPrompter(cmd)
		p.line("")
		close(enter)
	}()

	select {
	case <-sigCtx.Done():
	case <-enter:
	}
}

// keepRecording copies the staged temp file into the working directory so it
// survives the flow being cleared.
func keepRecording(cmd *cobra.Command, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", name)
	return nil
}
