package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/portal-notify/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// Theme names accepted by Apply.
const (
	Default = "default"
	Mono    = "mono"
)

var (
	// HeaderStyle is used for the application title bar.
	HeaderStyle lipgloss.Style

	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style

	// PanelStyle wraps the dropdown.
	PanelStyle lipgloss.Style

	// ListItemStyle is the base style for dropdown rows.
	ListItemStyle lipgloss.Style

	// SelectedItemStyle highlights the focused row.
	SelectedItemStyle lipgloss.Style

	// HelpStyle is used for keyboard hints and secondary text.
	HelpStyle lipgloss.Style

	BadgeStyle  lipgloss.Style
	UnreadStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	DimmedStyle lipgloss.Style

	accent, warn, danger, muted lipgloss.TerminalColor
	mono                        bool
)

func init() {
	Apply(Default)
}

// Apply rebuilds every style for the named theme. Unknown names fall back
// to Default.
func Apply(name string) {
	mono = name == Mono
	switch name {
	case Mono:
		accent = ColorWhite
		warn = ColorWhite
		danger = ColorWhite
		muted = ColorGray
	default:
		accent = ColorBlue
		warn = ColorYellow
		danger = ColorRed
		muted = ColorGray
	}

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorWhite).
		Background(ColorSubtle).
		Padding(0, 1)
	if !mono {
		HeaderStyle = HeaderStyle.Background(ColorBlue)
	}

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(ColorWhite).
		Background(ColorSubtle).
		Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(accent).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(accent)

	HelpStyle = lipgloss.NewStyle().
		Foreground(muted).
		Italic(true)

	BadgeStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Dark: "#1A202C", Light: "#F8F9FA"}).
		Background(danger).
		Padding(0, 1)

	UnreadStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(danger)
	DimmedStyle = lipgloss.NewStyle().Foreground(muted)
}

// CategoryStyle returns a color-coded style for a notification category.
func CategoryStyle(c model.Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	if mono {
		return base.Foreground(accent)
	}

	switch c {
	case model.CategoryConnectionRequestReceived:
		return base.Foreground(ColorBlue)
	case model.CategoryConnectionRequestAccepted:
		return base.Foreground(ColorGreen)
	case model.CategoryMessageReceived:
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(warn)
	}
}
