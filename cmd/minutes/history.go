package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/db"
	"github.com/jwulff/minutes/internal/markdown"
	"github.com/jwulff/minutes/internal/media"
)

const shortIDLen = 8

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your processed recordings, newest first",
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
			recs, err := e.store.Recordings(u.ID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No recordings yet.")
				return nil
			}
			for _, r := range recs {
				agent := ""
				if r.Agent != "" {
					agent = "  agent: " + r.Agent
				}
				fmt.Fprintf(out, "%s  %s  %5s  %s  %s%s\n",
					shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"),
					media.FormatDuration(r.Duration, r.Duration > 0), r.Language, r.FileName, agent)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of recordings (0 for all)")
	return cmd
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func newExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <recording-id>",
		Short: "Write a recording's summary and transcript as markdown, html or docx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			switch format {
			case "md", "html", "docx":
			default:
				return fmt.Errorf("unknown format %q (want md, html or docx)", format)
			}
			if format == "docx" && output == "" {
				return errors.New("docx export needs --output")
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
			rec, err := e.store.Recording(u.ID, args[0])
			if err != nil {
				return err
			}
			doc := documentOf(rec)

			switch format {
			case "docx":
				if err := markdown.WriteDocx(rec.FileName, doc, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
				return nil
			case "html":
				doc = markdown.ToHTML(doc)
			}

			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), doc)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format (md, html, docx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}

func documentOf(rec db.Recording) string {
	turns := make([]markdown.Turn, 0, len(rec.Dialogues))
	for _, d := range rec.Dialogues {
		turns = append(turns, markdown.Turn{Speaker: d.Speaker, Text: d.Text})
	}
	return markdown.Document(rec.FileName, rec.Summary, turns, rec.Transcript)
}
