package widget_test

import (
	"strings"
	"testing"
	"time"

	"github.com/voxdeck/voxdeck/pkg/widget"
)

func TestDecodeWellFormed(t *testing.T) {
	raw := `{
		"type": "card",
		"props": {"title": "Order #812"},
		"children": [
			{"type": "text", "props": {"text": "Ready for pickup."}},
			{"type": "button", "props": {"label": "Track", "action": "track_order"}}
		]
	}`
	n := widget.Decode(raw, "")
	if n.Type != widget.NodeCard {
		t.Fatalf("Type = %q", n.Type)
	}
	if got := n.Props.String("title"); got != "Order #812" {
		t.Errorf("title = %q", got)
	}
	if len(n.Children) != 2 || n.Children[1].Type != widget.NodeButton {
		t.Fatalf("children = %+v", n.Children)
	}
}

func TestDecodeRepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes, typical model output.
	raw := `{'type': 'text', 'props': {'text': 'fixed'},}`
	n := widget.Decode(raw, "fallback")
	if n.Type != widget.NodeText {
		t.Fatalf("Type = %q", n.Type)
	}
	if got := n.Props.String("text"); got != "fixed" {
		t.Errorf("text = %q", got)
	}
}

func TestDecodeDoubleEncoded(t *testing.T) {
	raw := `"{\"type\":\"text\",\"props\":{\"text\":\"hi\"}}"`
	n := widget.Decode(raw, "")
	if n.Type != widget.NodeText || n.Props.String("text") != "hi" {
		t.Errorf("decoded = %+v", n)
	}
}

func TestDecodeProseFallsBack(t *testing.T) {
	n := widget.Decode("Sure, here is the summary you asked for.", "plain text body")
	if n.Type != widget.NodeText {
		t.Fatalf("Type = %q", n.Type)
	}
	if got := n.Props.String("text"); got != "plain text body" {
		t.Errorf("text = %q", got)
	}
}

func TestDecodeProseWithoutFallbackKeepsRaw(t *testing.T) {
	n := widget.Decode("no widget here", "")
	if got := n.Props.String("text"); got != "no widget here" {
		t.Errorf("text = %q", got)
	}
}

func TestDecodeEmpty(t *testing.T) {
	n := widget.Decode("", "nothing to see")
	if n == nil || n.Props.String("text") != "nothing to see" {
		t.Errorf("decoded = %+v", n)
	}
}

func TestDecodeUntypedObjectFallsBack(t *testing.T) {
	n := widget.Decode(`{"foo": 1}`, "fb")
	if n.Type != widget.NodeText || n.Props.String("text") != "fb" {
		t.Errorf("decoded = %+v", n)
	}
}

func TestUnknownTypeSurvivesDecode(t *testing.T) {
	n := widget.Decode(`{"type":"hologram","props":{"x":1}}`, "")
	if n.Type != "hologram" {
		t.Fatalf("Type = %q", n.Type)
	}
	if n.Type.IsKnown() {
		t.Error("hologram must not be a known type")
	}
	if out := widget.NewRenderer().Render(n); out != "" {
		t.Errorf("unknown type rendered %q", out)
	}
}

func TestPropsAccessors(t *testing.T) {
	p := widget.Props{
		"s": "str", "n": 4.5, "b": true,
		"options": []any{"a", map[string]any{"label": "Bee", "value": "b"}, 7},
	}
	if p.String("s") != "str" || p.String("n") != "4.5" || p.String("missing") != "" {
		t.Errorf("String accessor: %q %q %q", p.String("s"), p.String("n"), p.String("missing"))
	}
	if f, ok := p.Float("n"); !ok || f != 4.5 {
		t.Errorf("Float = %v %v", f, ok)
	}
	if !p.Bool("b", false) || p.Bool("missing", true) != true {
		t.Error("Bool accessor")
	}
	opts := p.Options()
	if len(opts) != 2 || opts[0].Value != "a" || opts[1].Label != "Bee" || opts[1].Value != "b" {
		t.Errorf("Options = %+v", opts)
	}
}

func TestSlots(t *testing.T) {
	p := widget.Props{"slots": []any{
		map[string]any{"start": "2026-08-25T10:30:00Z", "end": "2026-08-25T11:00:00Z", "label": "intro call"},
		map[string]any{"start": float64(1756115400000), "available": false},
		map[string]any{"label": "no start, skipped"},
		"not an object",
	}}
	slots := p.Slots()
	if len(slots) != 2 {
		t.Fatalf("slots = %d", len(slots))
	}
	if slots[0].Label != "intro call" || !slots[0].Available {
		t.Errorf("slot 0 = %+v", slots[0])
	}
	if !slots[1].Start.Equal(time.UnixMilli(1756115400000)) || slots[1].Available {
		t.Errorf("slot 1 = %+v", slots[1])
	}
}

func TestWalkPrune(t *testing.T) {
	tree := &widget.Node{Type: widget.NodeCard, Children: []*widget.Node{
		{Type: widget.NodeForm, Children: []*widget.Node{
			{Type: widget.NodeInput, Props: widget.Props{"name": "inner"}},
		}},
		{Type: widget.NodeText},
	}}
	var visited []widget.NodeType
	widget.Walk(tree, func(n *widget.Node) bool {
		visited = append(visited, n.Type)
		return n.Type != widget.NodeForm
	})
	want := []widget.NodeType{widget.NodeCard, widget.NodeForm, widget.NodeText}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v", visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestFormStateAggregation(t *testing.T) {
	form := widget.Decode(`{
		"type": "form",
		"props": {"id": "booking"},
		"children": [
			{"type": "input", "props": {"name": "email", "value": "a@b.c"}},
			{"type": "card", "children": [
				{"type": "select", "props": {"name": "size", "value": "m", "options": ["s","m","l"]}}
			]},
			{"type": "form", "props": {"id": "nested"}, "children": [
				{"type": "input", "props": {"name": "ignored"}}
			]},
			{"type": "input", "props": {"value": "anonymous, skipped"}}
		]
	}`, "")

	state := widget.NewFormState(form)
	if state.FormID != "booking" {
		t.Errorf("FormID = %q", state.FormID)
	}
	fields := state.Fields()
	if len(fields) != 2 || fields[0] != "email" || fields[1] != "size" {
		t.Fatalf("Fields = %v", fields)
	}
	if state.Get("email") != "a@b.c" || state.Get("size") != "m" {
		t.Errorf("defaults = %q %q", state.Get("email"), state.Get("size"))
	}

	state.Set("size", "l")
	state.Set("ignored", "nope")

	event := state.Submit()
	if event.Kind != widget.EventSubmit || event.FormID != "booking" {
		t.Errorf("event = %+v", event)
	}
	if len(event.Values) != 2 || event.Values["size"] != "l" {
		t.Errorf("Values = %v", event.Values)
	}
	if _, ok := event.Values["ignored"]; ok {
		t.Error("undeclared field leaked into the event")
	}
}

func TestButtonEvent(t *testing.T) {
	btn := &widget.Node{Type: widget.NodeButton, Props: widget.Props{"label": "Go", "action": "go_now"}}
	event, ok := widget.ButtonEvent(btn)
	if !ok || event.Kind != widget.EventAction || event.Action != "go_now" {
		t.Errorf("event = %+v ok=%v", event, ok)
	}

	decorative := &widget.Node{Type: widget.NodeButton, Props: widget.Props{"label": "Shiny"}}
	if _, ok := widget.ButtonEvent(decorative); ok {
		t.Error("button without action produced an event")
	}
	if _, ok := widget.ButtonEvent(&widget.Node{Type: widget.NodeText}); ok {
		t.Error("non-button produced an event")
	}
}

func TestRenderRules(t *testing.T) {
	r := widget.NewRenderer()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			"text", `{"type":"text","props":{"text":"hello"}}`,
			[]string{"hello"},
		},
		{
			"button", `{"type":"button","props":{"label":"Track","action":"track_order"}}`,
			[]string{"[ Track ]", "(track_order)"},
		},
		{
			"input placeholder", `{"type":"input","props":{"label":"Email","placeholder":"you@example.com"}}`,
			[]string{"Email:", "you@example.com"},
		},
		{
			"select marks value", `{"type":"select","props":{"label":"Size","value":"m","options":["s","m","l"]}}`,
			[]string{"Size:", "[m]", "s / [m] / l"},
		},
		{
			"card frames title", `{"type":"card","props":{"title":"Order"},"children":[{"type":"text","props":{"text":"body"}}]}`,
			[]string{"Order", "body", "╭"},
		},
		{
			"map coordinates", `{"type":"map","props":{"label":"Office","lat":51.5074,"lng":-0.1278}}`,
			[]string{"[map]", "Office", "(51.5074, -0.1278)"},
		},
		{
			"calendar slots", `{"type":"calendar","props":{"title":"Pick a time","slots":[
				{"start":"2026-08-25T10:30:00Z","end":"2026-08-25T11:00:00Z","label":"intro"},
				{"start":"2026-08-25T11:30:00Z","available":false}
			]}}`,
			[]string{"Pick a time", "Aug 25 10:30-11:00", "intro", "(taken)"},
		},
		{
			"fragment renders children", `{"children":[{"type":"text","props":{"text":"a"}},{"type":"text","props":{"text":"b"}}]}`,
			[]string{"a\nb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := widget.Decode(tt.raw, "")
			out := r.Render(n)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("rendered %q\nmissing %q", out, want)
				}
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	n := widget.Decode(`{"type":"card","props":{"title":"Order"},"children":[
		{"type":"text","props":{"text":"Ready."}},
		{"type":"button","props":{"label":"Track","action":"t"}}
	]}`, "")
	got := widget.Describe(n)
	for _, want := range []string{"Order", "Ready.", "[Track]"} {
		if !strings.Contains(got, want) {
			t.Errorf("Describe = %q, missing %q", got, want)
		}
	}
	if widget.Describe(nil) != "" {
		t.Error("nil describe")
	}
}
