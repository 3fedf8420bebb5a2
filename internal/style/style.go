package style

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Colour palette
var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorInfo    = lipgloss.Color("#60A5FA")
	colorDim     = lipgloss.Color("#6B7280")
)

// Styles holds lipgloss styles bound to one output. Colours are dropped
// automatically when the output is not a terminal.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style

	badgeCompleted lipgloss.Style
	badgeFailed    lipgloss.Style
	badgeRunning   lipgloss.Style
	badgePending   lipgloss.Style
}

// New creates styles for w
func New(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)

	badge := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))

	return &Styles{
		Title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		Success: r.NewStyle().Bold(true).Foreground(colorSuccess),
		Error:   r.NewStyle().Bold(true).Foreground(colorError),
		Warning: r.NewStyle().Bold(true).Foreground(colorWarning),
		Dim:     r.NewStyle().Foreground(colorDim),

		badgeCompleted: badge.Background(colorSuccess),
		badgeFailed:    badge.Background(colorError),
		badgeRunning:   badge.Background(colorInfo),
		badgePending:   badge.Background(colorDim),
	}
}

// StatusBadge renders a session state as a coloured badge
func (s *Styles) StatusBadge(status string) string {
	label := " " + strings.ToUpper(strings.ReplaceAll(status, "_", " ")) + " "

	switch strings.ToLower(status) {
	case "completed":
		return s.badgeCompleted.Render(label)
	case "failed":
		return s.badgeFailed.Render(label)
	case "streaming", "running":
		return s.badgeRunning.Render(label)
	default:
		return s.badgePending.Render(label)
	}
}

// Divider creates a horizontal divider
func (s *Styles) Divider(width int) string {
	return s.Dim.Render(strings.Repeat("─", width))
}
