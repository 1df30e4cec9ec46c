// Package widget decodes and renders the declarative UI trees that
// agents attach to chat messages: a small closed vocabulary of nodes
// (text, buttons, forms, cards, maps, calendars) serialized as JSON.
//
// Payloads are model output and arrive in varying states of repair.
// Decode never fails: it repairs what it can and degrades the rest to
// plain text, so a transcript always renders.
package widget

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/voxdeck/voxdeck/pkg/jsontime"
)

// NodeType names one widget kind. Unknown values survive decoding so
// newer payloads do not break older consoles; they just render nothing.
type NodeType string

// The node vocabulary.
const (
	NodeText     NodeType = "text"
	NodeButton   NodeType = "button"
	NodeInput    NodeType = "input"
	NodeSelect   NodeType = "select"
	NodeForm     NodeType = "form"
	NodeCard     NodeType = "card"
	NodeMap      NodeType = "map"
	NodeCalendar NodeType = "calendar"
)

var knownTypes = map[NodeType]struct{}{
	NodeText: {}, NodeButton: {}, NodeInput: {}, NodeSelect: {},
	NodeForm: {}, NodeCard: {}, NodeMap: {}, NodeCalendar: {},
}

// IsKnown reports whether the type is part of the vocabulary this
// console renders.
func (t NodeType) IsKnown() bool {
	_, ok := knownTypes[t]
	return ok
}

// Node is one element of a widget tree.
type Node struct {
	Type     NodeType `json:"type"`
	Props    Props    `json:"props,omitzero"`
	Children []*Node  `json:"children,omitzero"`
}

// Props holds the loosely typed attributes of a node.
type Props map[string]any

// String returns a string prop; numbers are formatted, anything else
// reads as empty.
func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// Float returns a numeric prop.
func (p Props) Float(key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Bool returns a boolean prop, defaulting to def when absent or not a
// bool.
func (p Props) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Option is one choice of a select node.
type Option struct {
	Label string
	Value string
}

// Options reads the "options" prop: an array of strings or of
// {label, value} objects. Malformed entries are skipped.
func (p Props) Options() []Option {
	raw, ok := p["options"].([]any)
	if !ok {
		return nil
	}
	opts := make([]Option, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			opts = append(opts, Option{Label: v, Value: v})
		case map[string]any:
			o := Option{Label: Props(v).String("label"), Value: Props(v).String("value")}
			if o.Value == "" {
				o.Value = o.Label
			}
			if o.Label == "" {
				o.Label = o.Value
			}
			if o.Value != "" {
				opts = append(opts, o)
			}
		}
	}
	return opts
}

// Slot is one bookable range of a calendar node.
type Slot struct {
	Start     time.Time
	End       time.Time
	Label     string
	Available bool
}

// Slots reads the "slots" prop. Start/end accept Unix milliseconds or
// RFC 3339 strings; entries without a start time are skipped.
func (p Props) Slots() []Slot {
	raw, ok := p["slots"].([]any)
	if !ok {
		return nil
	}
	slots := make([]Slot, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		props := Props(entry)
		slot := Slot{
			Start:     slotTime(entry["start"]),
			End:       slotTime(entry["end"]),
			Label:     props.String("label"),
			Available: props.Bool("available", true),
		}
		if slot.Start.IsZero() {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

func slotTime(v any) time.Time {
	switch v := v.(type) {
	case string:
		return jsontime.ParseAny(v)
	case float64:
		return time.UnixMilli(int64(v))
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms)
		}
	}
	return time.Time{}
}

// Walk visits the tree depth first. Returning false from visit prunes
// the node's subtree.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, visit)
	}
}

// Decode parses a widget payload. Malformed JSON is repaired when
// possible; double-encoded payloads are unwrapped; anything that still
// fails becomes a plain text node carrying fallback (or the raw
// payload when no fallback is given). Decode never returns nil.
func Decode(raw, fallback string) *Node {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return textNode(fallback)
	}

	// Models sometimes emit the tree JSON-encoded inside a string.
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal([]byte(trimmed), &inner); err == nil && inner != trimmed {
			return Decode(inner, fallback)
		}
	}

	var node Node
	if err := unmarshalRepaired([]byte(trimmed), &node); err != nil {
		return textNode(coalesce(fallback, raw))
	}
	if node.Type == "" && len(node.Children) == 0 {
		return textNode(coalesce(fallback, raw))
	}
	return &node
}

// unmarshalRepaired unmarshals JSON, attempting a repair pass when the
// payload has a syntax error.
func unmarshalRepaired(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return rerr
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

func textNode(text string) *Node {
	return &Node{Type: NodeText, Props: Props{"text": text}}
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
