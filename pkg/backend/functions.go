package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FunctionsService invokes named platform functions.
type FunctionsService struct {
	client *Client
}

func newFunctionsService(c *Client) *FunctionsService {
	return &FunctionsService{client: c}
}

// Invoke calls a named platform function with params as the JSON body and
// decodes the result into result (which may be nil).
//
// Functions return an envelope: {"result": ...} on success or
// {"error": {"code": ..., "message": ...}} on failure, the latter with
// HTTP 200. Envelope errors surface as *Error with HTTPStatus zero.
func (s *FunctionsService) Invoke(ctx context.Context, name string, params, result any) error {
	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
	}
	path := "/v1/functions/" + url.PathEscape(name)
	if err := s.client.http.request(ctx, "POST", path, nil, params, &envelope); err != nil {
		return err
	}
	if envelope.Error != nil {
		if envelope.Error.Code == "" {
			envelope.Error.Code = "function_error"
		}
		return envelope.Error
	}
	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("backend: decode %s result: %w", name, err)
		}
	}
	return nil
}
