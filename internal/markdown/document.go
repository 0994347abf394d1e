package markdown

import (
	"fmt"
	"strings"
)

// NoTranscript is shown when a result has neither dialogues nor text.
const NoTranscript = "No transcription available"

// Turn is one speaker block of a transcript.
type Turn struct {
	Speaker string
	Text    string
}

// Transcript formats dialogues one block per turn, falling back to the raw
// transcription and then to NoTranscript.
func Transcript(turns []Turn, raw string) string {
	if len(turns) == 0 {
		if strings.TrimSpace(raw) == "" {
			return NoTranscript
		}
		return raw
	}
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == "" {
			blocks = append(blocks, t.Text)
			continue
		}
		blocks = append(blocks, fmt.Sprintf("**%s:** %s", t.Speaker, t.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// Document assembles the export of one processed recording.
func Document(title, summary string, turns []Turn, raw string) string {
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString("## Summary\n\n")
	if strings.TrimSpace(summary) == "" {
		b.WriteString("No summary available yet.\n")
	} else {
		b.WriteString(strings.TrimRight(summary, "\n") + "\n")
	}
	b.WriteString("\n## Transcript\n\n")
	b.WriteString(Transcript(turns, raw) + "\n")
	return b.String()
}
