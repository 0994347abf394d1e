package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwulff/minutes/internal/logger"
	"github.com/jwulff/minutes/internal/markdown"
	"github.com/jwulff/minutes/internal/orchestrator"
)

// Publisher processes an inbox file and writes <name>.md, plus <name>.docx
// when enabled, into the output directory.
type Publisher struct {
	newFlow func() *orchestrator.Orchestrator
	opts    orchestrator.Options
	outDir  string
	docx    bool
	log     logger.Logger
}

// NewPublisher creates a Publisher. newFlow must return a fresh
// orchestrator per call so files run independently.
func NewPublisher(newFlow func() *orchestrator.Orchestrator, opts orchestrator.Options, outDir string, docx bool, log logger.Logger) *Publisher {
	return &Publisher{newFlow: newFlow, opts: opts, outDir: outDir, docx: docx, log: log}
}

// Handle implements EventHandler.
func (p *Publisher) Handle(ctx context.Context, path string) error {
	flow := p.newFlow()
	defer flow.Clear()

	if _, err := flow.Stage(ctx, path); err != nil {
		return err
	}
	res, err := flow.Process(ctx, p.opts)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	turns := make([]markdown.Turn, 0, len(res.Dialogues))
	for _, d := range res.Dialogues {
		turns = append(turns, markdown.Turn{Speaker: d.Speaker, Text: d.Text})
	}
	doc := markdown.Document(name, res.SummaryText(), turns, res.Transcription)

	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	mdPath := filepath.Join(p.outDir, stem+".md")
	if err := os.WriteFile(mdPath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	p.log.Info(ctx, "Wrote %s", mdPath)

	if p.docx {
		docxPath := filepath.Join(p.outDir, stem+".docx")
		if err := markdown.WriteDocx(name, doc, docxPath); err != nil {
			return err
		}
		p.log.Info(ctx, "Wrote %s", docxPath)
	}
	return nil
}
