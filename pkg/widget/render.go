package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultRenderWidth = 60

// Renderer draws widget trees for the terminal transcript. One node
// type maps to one rendering rule; unrecognized types render nothing.
type Renderer struct {
	// Width bounds card frames and wrapped text.
	Width int

	label  lipgloss.Style
	dim    lipgloss.Style
	button lipgloss.Style
	frame  lipgloss.Style
}

// NewRenderer creates a renderer with the console's default styling.
func NewRenderer() *Renderer {
	primary := lipgloss.Color("#9d7cff")
	dim := lipgloss.Color("#6e7681")
	return &Renderer{
		Width:  defaultRenderWidth,
		label:  lipgloss.NewStyle().Bold(true),
		dim:    lipgloss.NewStyle().Foreground(dim),
		button: lipgloss.NewStyle().Bold(true).Foreground(primary),
		frame:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(0, 1),
	}
}

// Render draws the tree rooted at n.
func (r *Renderer) Render(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case NodeText:
		return r.joinWithChildren(n, n.Props.String("text"))
	case NodeButton:
		return r.renderButton(n)
	case NodeInput:
		return r.renderInput(n)
	case NodeSelect:
		return r.renderSelect(n)
	case NodeForm:
		return r.renderForm(n)
	case NodeCard:
		return r.renderCard(n)
	case NodeMap:
		return r.renderMap(n)
	case NodeCalendar:
		return r.renderCalendar(n)
	case "":
		// A bare fragment: no rule of its own, children still show.
		return strings.Join(r.renderChildren(n), "\n")
	default:
		return ""
	}
}

func (r *Renderer) renderButton(n *Node) string {
	label := coalesce(n.Props.String("label"), n.Props.String("text"))
	out := r.button.Render("[ " + label + " ]")
	if action := n.Props.String("action"); action != "" {
		out += " " + r.dim.Render("("+action+")")
	}
	return out
}

func (r *Renderer) renderInput(n *Node) string {
	label := coalesce(n.Props.String("label"), n.Props.String("name"))
	value := n.Props.String("value")
	if value == "" {
		placeholder := coalesce(n.Props.String("placeholder"), "____")
		return r.label.Render(label+":") + " " + r.dim.Render(placeholder)
	}
	return r.label.Render(label+":") + " " + value
}

func (r *Renderer) renderSelect(n *Node) string {
	label := coalesce(n.Props.String("label"), n.Props.String("name"))
	selected := n.Props.String("value")
	parts := make([]string, 0, 4)
	for _, opt := range n.Props.Options() {
		if opt.Value == selected && selected != "" {
			parts = append(parts, "["+opt.Label+"]")
		} else {
			parts = append(parts, opt.Label)
		}
	}
	return r.label.Render(label+":") + " " + strings.Join(parts, " / ")
}

func (r *Renderer) renderForm(n *Node) string {
	var lines []string
	if title := n.Props.String("title"); title != "" {
		lines = append(lines, r.label.Render(title))
	}
	for _, line := range r.renderChildren(n) {
		lines = append(lines, indent(line, "  "))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderCard(n *Node) string {
	var lines []string
	if title := n.Props.String("title"); title != "" {
		lines = append(lines, r.label.Render(title))
	}
	if subtitle := n.Props.String("subtitle"); subtitle != "" {
		lines = append(lines, r.dim.Render(subtitle))
	}
	lines = append(lines, r.renderChildren(n)...)
	body := strings.Join(lines, "\n")
	return r.frame.Width(min(r.Width, lipgloss.Width(body)+4)).Render(body)
}

func (r *Renderer) renderMap(n *Node) string {
	lat, okLat := n.Props.Float("lat")
	lng, okLng := n.Props.Float("lng")
	label := n.Props.String("label")
	if !okLat || !okLng {
		return label
	}
	coords := "(" + strconv.FormatFloat(lat, 'f', -1, 64) + ", " + strconv.FormatFloat(lng, 'f', -1, 64) + ")"
	if label == "" {
		return r.dim.Render("[map] ") + coords
	}
	return r.dim.Render("[map] ") + label + " " + coords
}

func (r *Renderer) renderCalendar(n *Node) string {
	var lines []string
	if title := n.Props.String("title"); title != "" {
		lines = append(lines, r.label.Render(title))
	}
	for _, slot := range n.Props.Slots() {
		span := slot.Start.Format("Mon Jan 2 15:04")
		if !slot.End.IsZero() {
			span += "-" + slot.End.Format("15:04")
		}
		line := span
		if slot.Label != "" {
			line += "  " + slot.Label
		}
		if !slot.Available {
			line = r.dim.Render(line + "  (taken)")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) renderChildren(n *Node) []string {
	var out []string
	for _, child := range n.Children {
		if s := r.Render(child); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *Renderer) joinWithChildren(n *Node, first string) string {
	lines := r.renderChildren(n)
	if first != "" {
		lines = append([]string{first}, lines...)
	}
	return strings.Join(lines, "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// Describe returns a one-line plain summary of a tree, used where a
// full render does not fit (list views, logs).
func Describe(n *Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	Walk(n, func(n *Node) bool {
		switch n.Type {
		case NodeText:
			if t := n.Props.String("text"); t != "" {
				parts = append(parts, t)
			}
		case NodeButton:
			if l := n.Props.String("label"); l != "" {
				parts = append(parts, "["+l+"]")
			}
		case NodeCard:
			if t := n.Props.String("title"); t != "" {
				parts = append(parts, t)
			}
		case NodeForm:
			if t := n.Props.String("title"); t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	summary := strings.Join(parts, " ")
	if summary == "" && n.Type != "" {
		summary = fmt.Sprintf("<%s>", n.Type)
	}
	return summary
}
