package markdown

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	h1Style     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true)
	h2Style     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	h3Style     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	strongStyle = lipgloss.NewStyle().Bold(true)
	emStyle     = lipgloss.NewStyle().Italic(true)
	markerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var reInline = regexp.MustCompile(`\*\*(.+?)\*\*|\*(.+?)\*|__(.+?)__|_(.+?)_`)

// ToTerminal renders text for the TUI, wrapping to width. A width of zero
// or less disables wrapping.
func ToTerminal(text string, width int) string {
	if text == "" {
		return ""
	}

	var blocks []string
	prevBlank := false
	for _, line := range strings.Split(text, "\n") {
		var block string
		switch {
		case reBullet.MatchString(line):
			m := reBullet.FindStringSubmatch(line)
			block = hang(markerStyle.Render("• "), 2, inlineTerminal(m[1]), width)
		case reNumbered.MatchString(line):
			m := reNumbered.FindStringSubmatch(line)
			marker := line[:strings.Index(line, ".")+1] + " "
			block = hang(markerStyle.Render(marker), lipgloss.Width(marker), inlineTerminal(m[1]), width)
		case strings.HasPrefix(line, "### "):
			block = wrap(h3Style.Render(stripInline(line[4:])), width)
		case strings.HasPrefix(line, "## "):
			block = wrap(h2Style.Render(stripInline(line[3:])), width)
		case strings.HasPrefix(line, "# "):
			block = wrap(h1Style.Render(stripInline(line[2:])), width)
		case strings.TrimSpace(line) == "":
			// collapse runs of blank lines
			if prevBlank {
				continue
			}
			prevBlank = true
			blocks = append(blocks, "")
			continue
		default:
			block = wrap(inlineTerminal(line), width)
		}
		prevBlank = false
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n")
}

func inlineTerminal(s string) string {
	return reInline.ReplaceAllStringFunc(s, func(m string) string {
		sub := reInline.FindStringSubmatch(m)
		switch {
		case sub[1] != "":
			return strongStyle.Render(sub[1])
		case sub[2] != "":
			return emStyle.Render(sub[2])
		case sub[3] != "":
			return strongStyle.Render(sub[3])
		}
		return emStyle.Render(sub[4])
	})
}

// stripInline drops emphasis markers; headings are already bold.
func stripInline(s string) string {
	return reInline.ReplaceAllStringFunc(s, func(m string) string {
		sub := reInline.FindStringSubmatch(m)
		for _, g := range sub[1:] {
			if g != "" {
				return g
			}
		}
		return m
	})
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// hang renders a list item with continuation lines indented under the text.
func hang(marker string, indent int, body string, width int) string {
	if width <= 0 || width <= indent {
		return marker + body
	}
	wrapped := lipgloss.NewStyle().Width(width - indent).Render(body)
	lines := strings.Split(wrapped, "\n")
	pad := strings.Repeat(" ", indent)
	for i := range lines {
		if i == 0 {
			lines[i] = marker + lines[i]
		} else {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
