package realtime

// Event types the client sends.
const (
	EventTypeSessionUpdate          = "session.update"
	EventTypeConversationItemCreate = "conversation.item.create"
	EventTypeResponseCreate         = "response.create"
	EventTypeResponseCancel         = "response.cancel"
)

// Event types the server sends.
const (
	EventTypeError = "error"

	EventTypeSessionCreated = "session.created"
	EventTypeSessionUpdated = "session.updated"

	EventTypeConversationItemCreated = "conversation.item.created"

	EventTypeResponseCreated = "response.created"
	EventTypeResponseDone    = "response.done"

	EventTypeResponseTextDelta = "response.text.delta"
	EventTypeResponseTextDone  = "response.text.done"

	EventTypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseAudioTranscriptDone  = "response.audio_transcript.done"

	EventTypeResponseFunctionCallArgumentsDone = "response.function_call_arguments.done"

	EventTypeRateLimitsUpdated = "rate_limits.updated"
)

// ServerEvent is one event received from the API. Which fields are
// populated depends on Type; Raw always holds the original message.
type ServerEvent struct {
	Type string `json:"type"`

	// EventID is the server-assigned id.
	EventID string `json:"event_id,omitzero"`

	// Session is set for session.created and session.updated.
	Session *SessionResource `json:"session,omitzero"`

	// Item is set for conversation.item.* events.
	Item *ConversationItem `json:"item,omitzero"`

	// ItemID identifies the item various events refer to.
	ItemID string `json:"item_id,omitzero"`

	// Transcript is the completed transcript for *_transcript.done.
	Transcript string `json:"transcript,omitzero"`

	// Err carries the payload of an error event.
	Err *EventError `json:"error,omitzero"`

	// Response is set for response.* events.
	Response *ResponseResource `json:"response,omitzero"`

	// ResponseID identifies the response for delta events.
	ResponseID string `json:"response_id,omitzero"`

	// Delta is the incremental text for *.delta events.
	Delta string `json:"delta,omitzero"`

	// CallID, Name and Arguments describe a function call.
	CallID    string `json:"call_id,omitzero"`
	Name      string `json:"name,omitzero"`
	Arguments string `json:"arguments,omitzero"`

	// RateLimits is set for rate_limits.updated.
	RateLimits []RateLimit `json:"rate_limits,omitzero"`

	// Raw is the message exactly as received.
	Raw []byte `json:"-"`
}
