package toolset

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// JQExpr is a jq expression with its pre-parsed query. Webhook
// integrations use one to pick the part of the webhook response that
// is returned to the model. Parsing happens during deserialization so
// a bad expression fails at configuration time, not mid-conversation.
type JQExpr struct {
	Expr  string      // original expression string
	Query *gojq.Query // pre-parsed query (not serialized)
}

// ParseJQ parses expr into a JQExpr. An empty expression is valid and
// runs as the identity transform.
func ParseJQ(expr string) (*JQExpr, error) {
	e := &JQExpr{Expr: expr}
	if expr == "" {
		return e, nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	e.Query = query
	return e, nil
}

// MarshalJSON implements json.Marshaler.
func (e JQExpr) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Expr)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *JQExpr) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &e.Expr); err != nil {
		return err
	}
	if e.Expr == "" {
		e.Query = nil
		return nil
	}
	query, err := gojq.Parse(e.Expr)
	if err != nil {
		return fmt.Errorf("invalid jq expression %q: %w", e.Expr, err)
	}
	e.Query = query
	return nil
}

// Run executes the expression on input and returns the first result
// as a JSON string. A nil or empty expression returns the input
// re-encoded unchanged.
func (e *JQExpr) Run(input any) (string, error) {
	if e == nil || e.Query == nil {
		out, err := json.Marshal(input)
		if err != nil {
			return "", fmt.Errorf("marshal jq input: %w", err)
		}
		return string(out), nil
	}
	iter := e.Query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return "", fmt.Errorf("jq expression %q returned no result", e.Expr)
	}
	if err, ok := v.(error); ok {
		return "", fmt.Errorf("jq error: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal jq result: %w", err)
	}
	return string(out), nil
}
