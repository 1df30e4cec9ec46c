package widget

import "maps"

// Event kinds emitted by interactive nodes.
const (
	EventSubmit = "submit"
	EventAction = "action"
)

// Event is what an interactive widget produces: a button press or a
// form submission. Events are handed to the agent as a user turn.
type Event struct {
	Kind   string            `json:"kind"`
	Action string            `json:"action,omitzero"`
	FormID string            `json:"form_id,omitzero"`
	Values map[string]string `json:"values,omitzero"`
}

// FormState is the editable value map of one form node, seeded with
// the defaults declared on its input/select descendants.
type FormState struct {
	FormID string
	fields []string
	values map[string]string
}

// NewFormState walks the form and collects its fields. Nested forms
// own their fields and are not descended into.
func NewFormState(form *Node) *FormState {
	s := &FormState{values: map[string]string{}}
	if form == nil {
		return s
	}
	s.FormID = form.Props.String("id")
	Walk(form, func(n *Node) bool {
		if n != form && n.Type == NodeForm {
			return false
		}
		switch n.Type {
		case NodeInput, NodeSelect:
			name := n.Props.String("name")
			if name == "" {
				return true
			}
			if _, seen := s.values[name]; !seen {
				s.fields = append(s.fields, name)
			}
			s.values[name] = n.Props.String("value")
		}
		return true
	})
	return s
}

// Fields returns the field names in declaration order.
func (s *FormState) Fields() []string { return s.fields }

// Get returns the current value of a field.
func (s *FormState) Get(name string) string { return s.values[name] }

// Set updates a field. Setting a name the form never declared is
// ignored; events only carry declared fields.
func (s *FormState) Set(name, value string) {
	if _, ok := s.values[name]; ok {
		s.values[name] = value
	}
}

// Submit produces the single structured event for the whole form.
func (s *FormState) Submit() Event {
	return Event{
		Kind:   EventSubmit,
		FormID: s.FormID,
		Values: maps.Clone(s.values),
	}
}

// ButtonEvent produces the action event for a button node. Buttons
// without an action id are decorative and produce nothing.
func ButtonEvent(n *Node) (Event, bool) {
	if n == nil || n.Type != NodeButton {
		return Event{}, false
	}
	action := n.Props.String("action")
	if action == "" {
		return Event{}, false
	}
	return Event{Kind: EventAction, Action: action}, true
}
