package realtime

import "fmt"

// Error is an error reported by the Realtime API, either in an error
// event on the stream or while establishing the connection.
type Error struct {
	// Type is the error type, e.g. "invalid_request_error".
	Type string `json:"type,omitzero"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitzero"`

	// Message is the human readable description.
	Message string `json:"message"`

	// Param names the offending parameter, when applicable.
	Param string `json:"param,omitzero"`

	// EventID is the client event that triggered the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is set for connection failures, zero otherwise.
	HTTPStatus int `json:"-"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: %s (%s)", e.Message, e.Code)
	}
	return "realtime: " + e.Message
}

// EventError is the error payload embedded in an error server event.
type EventError struct {
	Type    string `json:"type,omitzero"`
	Code    string `json:"code,omitzero"`
	Message string `json:"message"`
	Param   string `json:"param,omitzero"`
	EventID string `json:"event_id,omitzero"`
}

// ToError converts the payload into an *Error.
func (e *EventError) ToError() *Error {
	return &Error{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Param:   e.Param,
		EventID: e.EventID,
	}
}
