package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal rendering.
type Theme struct {
	Primary lipgloss.Color // titles and done marks
	Pending lipgloss.Color // pending marks
	Dim     lipgloss.Color // details
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Pending: lipgloss.Color("#f0883e"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Done    lipgloss.Style
	Pending lipgloss.Style
	Detail  lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Done:    lipgloss.NewStyle().Foreground(t.Primary),
		Pending: lipgloss.NewStyle().Foreground(t.Pending),
		Detail:  lipgloss.NewStyle().Foreground(t.Dim),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Primary).
			Padding(0, 1),
	}
}

// Item is one checklist row.
type Item struct {
	Label  string
	Done   bool
	Detail string
}

// Checklist renders a titled list of done/pending items in a box.
type Checklist struct {
	Styles Styles
	Title  string
	Items  []Item
	Footer string
}

// Render returns the checklist as a string.
func (c Checklist) Render() string {
	width := 0
	for _, it := range c.Items {
		width = max(width, lipgloss.Width(it.Label))
	}

	lines := []string{c.Styles.Title.Render(c.Title), ""}
	for _, it := range c.Items {
		mark := c.Styles.Pending.Render("○")
		if it.Done {
			mark = c.Styles.Done.Render("●")
		}
		line := mark + " " + it.Label + strings.Repeat(" ", width-lipgloss.Width(it.Label))
		if it.Detail != "" {
			line += "  " + c.Styles.Detail.Render(it.Detail)
		}
		lines = append(lines, line)
	}
	if c.Footer != "" {
		lines = append(lines, "", c.Styles.Detail.Render(c.Footer))
	}
	return c.Styles.Box.Render(strings.Join(lines, "\n"))
}
