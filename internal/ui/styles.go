package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FD787")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorCyan    = lipgloss.Color("#5FD7FF")
	ColorBlue    = lipgloss.Color("#5F87FF")
	ColorGray    = lipgloss.Color("#808080")
	ColorDimGray = lipgloss.Color("#4E4E4E")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#D787FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	RecordingDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Width(12)

	FooterKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)
)

// Sidebar styles.
var (
	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Bold(true)

	MenuItemStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	MenuItemDisabledStyle = lipgloss.NewStyle().
				Foreground(ColorDimGray)
)

// Role badge styles, keyed by badge text.
var RoleBadgeStyles = map[string]lipgloss.Style{
	"Admin":      lipgloss.NewStyle().Bold(true).Foreground(ColorRed),
	"Supervisor": lipgloss.NewStyle().Bold(true).Foreground(ColorYellow),
	"User":       lipgloss.NewStyle().Bold(true).Foreground(ColorBlue),
}

// RoleBadge renders a role badge, falling back to the User style.
func RoleBadge(badge string) string {
	style, ok := RoleBadgeStyles[badge]
	if !ok {
		style = RoleBadgeStyles["User"]
	}
	return style.Render("[" + badge + "]")
}

// Tab and chat styles.
var (
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Underline(true).
			Padding(0, 1)

	ChatUserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBlue)

	ChatAssistantStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorGreen)

	InputStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	InputActiveStyle = lipgloss.NewStyle().
				Foreground(ColorCyan)

	StatusActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorGreen)

	StatusInactiveStyle = lipgloss.NewStyle().
				Foreground(ColorGray)
)
