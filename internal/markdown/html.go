// Package markdown renders the small markdown subset the summarization
// service produces: headings, bold and italic, flat bullet and numbered
// lists. Nested lists, code, tables and links are passed through as text.
package markdown

import (
	"html"
	"regexp"
	"strings"
)

var (
	reBullet   = regexp.MustCompile(`^[*\-]\s+(.+)$`)
	reNumbered = regexp.MustCompile(`^\d+\.\s+(.+)$`)

	reBulletStart   = regexp.MustCompile(`^[*\-]\s+`)
	reNumberedStart = regexp.MustCompile(`^\d+\.\s+`)

	reStrongStar = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reEmStar     = regexp.MustCompile(`\*(.+?)\*`)
	reStrongUnd  = regexp.MustCompile(`__(.+?)__`)
	reEmUnd      = regexp.MustCompile(`_(.+?)_`)
)

// ToHTML converts text line by line. Consecutive items of one list kind
// share a list element; a blank line becomes <br>. Text is HTML-escaped
// before the markdown rules apply, so only the tags ToHTML emits are markup.
func ToHTML(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	var out strings.Builder
	list := "" // "ul", "ol" or none

	closeList := func() {
		if list != "" {
			out.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(kind string) {
		if list != kind {
			closeList()
			out.WriteString("<" + kind + ">")
			list = kind
		}
	}

	for i, line := range lines {
		line = html.EscapeString(line)
		if m := reBullet.FindStringSubmatch(line); m != nil {
			openList("ul")
			out.WriteString("<li>" + inlineHTML(m[1]) + "</li>")
			continue
		}
		if m := reNumbered.FindStringSubmatch(line); m != nil {
			openList("ol")
			out.WriteString("<li>" + inlineHTML(m[1]) + "</li>")
			continue
		}
		closeList()

		switch {
		case strings.HasPrefix(line, "### "):
			out.WriteString("<h3>" + inlineHTML(line[4:]) + "</h3>")
		case strings.HasPrefix(line, "## "):
			out.WriteString("<h2>" + inlineHTML(line[3:]) + "</h2>")
		case strings.HasPrefix(line, "# "):
			out.WriteString("<h1>" + inlineHTML(line[2:]) + "</h1>")
		case strings.TrimSpace(line) == "":
			out.WriteString("<br>")
		default:
			out.WriteString(inlineHTML(line))
			if i < len(lines)-1 && breakBefore(lines[i+1]) {
				out.WriteString("<br>")
			}
		}
	}
	closeList()
	return out.String()
}

// breakBefore reports whether a plain line followed by next needs a <br>.
func breakBefore(next string) bool {
	return strings.TrimSpace(next) != "" &&
		!reBulletStart.MatchString(next) &&
		!reNumberedStart.MatchString(next)
}

func inlineHTML(s string) string {
	s = reStrongStar.ReplaceAllString(s, "<strong>${1}</strong>")
	s = reEmStar.ReplaceAllString(s, "<em>${1}</em>")
	s = reStrongUnd.ReplaceAllString(s, "<strong>${1}</strong>")
	s = reEmUnd.ReplaceAllString(s, "<em>${1}</em>")
	return s
}
