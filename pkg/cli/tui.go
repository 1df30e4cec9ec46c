package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the color scheme for dashboard output.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
}

// DefaultTheme is the violet console theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#9d7cff"),
	Dim:     lipgloss.Color("#5f6b7a"),
}

// Styles holds the lipgloss styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
}

// NewStyles derives Styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Padding(0, 1),
		Label:  lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Section is one labeled pane of a Frame. Content is called on every
// render, so panes can show live data.
type Section struct {
	Label   string
	Content func() []string
}

// Frame is a bordered dashboard: a title bar, labeled panes, and a
// help line. Watch-style commands print one frame per refresh.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render draws the frame at the given terminal size. Each pane shows
// the tail of its content; overlong lines are truncated with an
// ellipsis.
func (f Frame) Render(width, height int) string {
	if width < 8 || height < 8 {
		return "Loading..."
	}

	b := frameBuilder{styles: f.Styles, width: width}
	b.edge("╭", "╮")
	b.titleBar(f.Title, f.Status)
	b.row("")
	rows := f.paneRows(height)
	for _, sec := range f.Sections {
		b.paneLabel(sec.Label)
		b.paneBody(sec.Content(), rows)
	}
	b.edge("╰", "╯")
	b.lines = append(b.lines, f.Styles.Help.Render(f.Help))
	return strings.Join(b.lines, "\n")
}

// paneRows divides the vertical budget evenly among panes. Fixed rows:
// borders (2), title (1), spacer (1), help (1), one label row per pane.
func (f Frame) paneRows(height int) int {
	panes := max(len(f.Sections), 1)
	return max((height-5-panes)/panes, 2)
}

type frameBuilder struct {
	styles Styles
	width  int
	lines  []string
}

// edge emits a horizontal border with the given corner glyphs.
func (b *frameBuilder) edge(left, right string) {
	b.lines = append(b.lines, b.styles.Border.Render(left+strings.Repeat("─", b.width-2)+right))
}

// row emits one body line between the side borders, space-padded.
func (b *frameBuilder) row(content string) {
	pad := max(0, b.width-2-lipgloss.Width(content))
	bar := b.styles.Border.Render("│")
	b.lines = append(b.lines, bar+content+strings.Repeat(" ", pad)+bar)
}

func (b *frameBuilder) titleBar(title, status string) {
	t := b.styles.Title.Render(title)
	s := b.styles.Help.Render("[" + status + "]")
	b.row(" " + t + " " + s)
}

// paneLabel emits the separator with the pane name embedded:
// ├─Label────┤
func (b *frameBuilder) paneLabel(label string) {
	l := b.styles.Label.Render(label)
	pad := max(0, b.width-3-lipgloss.Width(l))
	sep := b.styles.Border.Render("├─") + l + b.styles.Border.Render(strings.Repeat("─", pad)+"┤")
	b.lines = append(b.lines, sep)
}

// paneBody emits exactly rows lines, showing the tail of content.
func (b *frameBuilder) paneBody(content []string, rows int) {
	if len(content) > rows {
		content = content[len(content)-rows:]
	}
	maxText := b.width - 4
	for i := 0; i < rows; i++ {
		text := ""
		if i < len(content) {
			text = content[i]
		}
		if maxText > 1 && lipgloss.Width(text) > maxText {
			text = truncate(text, maxText-1) + "…"
		}
		b.row(" " + text + " ")
	}
}

// truncate cuts s to at most width display cells, rune-safe.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	var out strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > width {
			break
		}
		out.WriteRune(r)
		used += w
	}
	return out.String()
}
