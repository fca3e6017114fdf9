package render

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("#059669") // Green
	AccentColor  = lipgloss.Color("#F59E0B") // Amber

	CheapColor = lipgloss.Color("#10B981")
	DearColor  = lipgloss.Color("#EF4444")

	BorderColor        = lipgloss.Color("#374151")
	TextColor          = lipgloss.Color("#F9FAFB")
	TextSecondaryColor = lipgloss.Color("#9CA3AF")
	TextMutedColor     = lipgloss.Color("#6B7280")
)

var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextSecondaryColor)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(TextMutedColor)

	CheapStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(CheapColor)

	DearStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(DearColor)

	AdviceStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(DearColor)

	BarStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)
)
