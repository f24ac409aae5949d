package engine

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/turn"
)

// mapToolCall converts a call-shaped item to the chat dialect's tool call
// form. Custom tool calls surface their input string as the arguments.
// Items of any other kind report false and stay out of the chat dialect.
func mapToolCall(item *turn.Item) (api.ToolCall, bool) {
	switch {
	case item.FunctionCall != nil:
		return api.ToolCall{
			ID:   item.FunctionCall.CallID,
			Type: "function",
			Function: api.ToolCallFunction{
				Name:      item.FunctionCall.Name,
				Arguments: item.FunctionCall.Arguments,
			},
		}, true
	case item.CustomToolCall != nil:
		return api.ToolCall{
			ID:   item.CustomToolCall.CallID,
			Type: "function",
			Function: api.ToolCallFunction{
				Name:      item.CustomToolCall.Name,
				Arguments: item.CustomToolCall.Input,
			},
		}, true
	}
	return api.ToolCall{}, false
}

// itemJSON renders an item in its wire form for verbatim forwarding.
func itemJSON(item *turn.Item) json.RawMessage {
	data, err := json.Marshal(item)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func submissionError(err error) *api.APIError {
	return api.NewInternalError(fmt.Sprintf("submission failed: %v", err))
}

func eventStreamError(err error) *api.APIError {
	return api.NewInternalError(fmt.Sprintf("event stream failed: %v", err))
}

func upstreamTurnError(message string) *api.APIError {
	return api.NewInternalError("upstream turn error: " + message)
}

func turnAbortedError(reason string) *api.APIError {
	return api.NewInternalError("turn aborted: " + reason)
}
