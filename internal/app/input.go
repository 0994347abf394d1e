package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwulff/minutes/internal/ui"
)

// field is a single-line text input.
type field struct {
	label  string
	value  []rune
	secret bool
}

func (f *field) update(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyRunes:
		f.value = append(f.value, msg.Runes...)
	case tea.KeySpace:
		f.value = append(f.value, ' ')
	case tea.KeyBackspace:
		if len(f.value) > 0 {
			f.value = f.value[:len(f.value)-1]
		}
	case tea.KeyCtrlU:
		f.value = nil
	}
}

func (f field) String() string { return string(f.value) }

func (f *field) reset() { f.value = nil }

func (f field) render(active bool, width int) string {
	text := string(f.value)
	if f.secret {
		text = strings.Repeat("•", len(f.value))
	}
	style := ui.InputStyle
	if active {
		text += "▌"
		style = ui.InputActiveStyle
	}
	// keep the tail visible when the value is wider than the box
	avail := max(4, width-len(f.label)-3)
	if r := []rune(text); len(r) > avail {
		text = "…" + string(r[len(r)-avail+1:])
	}
	return ui.DimStyle.Render(f.label+": ") + style.Render(text)
}

// form is an ordered set of fields with one focused.
type form struct {
	fields []field
	focus  int
}

func newForm(fields ...field) form {
	return form{fields: fields}
}

func (f *form) next() { f.focus = (f.focus + 1) % len(f.fields) }

func (f *form) prev() { f.focus = (f.focus + len(f.fields) - 1) % len(f.fields) }

func (f *form) last() bool { return f.focus == len(f.fields)-1 }

func (f *form) update(msg tea.KeyMsg) { f.fields[f.focus].update(msg) }

func (f form) value(i int) string { return f.fields[i].String() }

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].reset()
	}
	f.focus = 0
}

func (f form) render(active bool, width int) []string {
	lines := make([]string, 0, len(f.fields))
	for i, fl := range f.fields {
		lines = append(lines, fl.render(active && i == f.focus, width))
	}
	return lines
}

// cleanPath undoes the quoting terminals add to dropped file paths.
func cleanPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, `\ `, " ")
}
