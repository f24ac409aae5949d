package api

import "encoding/json"

// StreamEventType identifies the type of a responses-dialect stream event.
type StreamEventType string

// Lifecycle and delta events emitted on a responses-dialect stream, in the
// order a successful turn produces them: created, then any number of deltas
// and item-done events, then completed. A failing turn ends with failed
// instead.
const (
	EventResponseCreated   StreamEventType = "response.created"
	EventOutputTextDelta   StreamEventType = "response.output_text.delta"
	EventOutputItemDone    StreamEventType = "response.output_item.done"
	EventResponseCompleted StreamEventType = "response.completed"
	EventResponseFailed    StreamEventType = "response.failed"
)

// StreamEvent is a single server-sent event in a responses-dialect stream.
// Item carries engine items verbatim; Response is set on lifecycle events.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	Response       *Response       `json:"response,omitempty"`
	Item           json.RawMessage `json:"item,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}
