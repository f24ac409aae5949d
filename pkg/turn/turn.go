package turn

import "encoding/json"

// ApprovalPolicy controls whether the engine may ask for confirmation
// before executing side-effecting work.
type ApprovalPolicy string

const (
	ApprovalNever     ApprovalPolicy = "never"
	ApprovalOnRequest ApprovalPolicy = "on-request"
)

// SandboxPolicy controls the filesystem reach of tool execution.
type SandboxPolicy string

const (
	SandboxReadOnly       SandboxPolicy = "read-only"
	SandboxWorkspaceWrite SandboxPolicy = "workspace-write"
)

// Request is one unit of work submitted to a session. ID must be fresh per
// submission; every event the turn emits is tagged with it.
type Request struct {
	ID          string
	Instruction string
	Model       string
	Approval    ApprovalPolicy
	Sandbox     SandboxPolicy
	WorkingDir  string
}

// EventType discriminates the events a session emits.
type EventType string

const (
	EventTaskStarted       EventType = "task_started"
	EventAgentMessage      EventType = "agent_message"
	EventAgentMessageDelta EventType = "agent_message_delta"
	EventItem              EventType = "item"
	EventTokenCount        EventType = "token_count"
	EventWarning           EventType = "warning"
	EventTurnComplete      EventType = "turn_complete"
	EventError             EventType = "error"
	EventTurnAborted       EventType = "turn_aborted"
)

// Event is one unit pushed by a session's run loop, tagged with the id of
// the turn it belongs to. Which payload fields are set depends on Type.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`

	// Message carries agent_message text, warning text, or an error message.
	Message string `json:"message,omitempty"`
	// Delta carries an agent_message_delta text fragment.
	Delta string `json:"delta,omitempty"`
	// Item carries the structured item of an item event.
	Item *Item `json:"item,omitempty"`
	// LastAgentMessage carries the optional final aggregated message of a
	// turn_complete event. When set it supersedes all streamed text.
	LastAgentMessage *string `json:"last_agent_message,omitempty"`
	// Reason carries the cause of a turn_aborted event.
	Reason string `json:"reason,omitempty"`
	// Usage carries the token accounting of a token_count event.
	Usage *Usage `json:"usage,omitempty"`
}

// Terminal reports whether the event ends its turn. turn_complete, error,
// and turn_aborted are the only terminal types.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventTurnComplete, EventError, EventTurnAborted:
		return true
	}
	return false
}

// Usage is the token accounting a session reports in token_count events.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ItemType discriminates structured items. The two call shapes are the only
// types with dedicated fields; everything else travels as raw JSON.
type ItemType string

const (
	ItemFunctionCall   ItemType = "function_call"
	ItemCustomToolCall ItemType = "custom_tool_call"
)

// Item is a structured item surfaced by the engine during a turn. Function
// and custom tool calls are typed; all other kinds are preserved verbatim in
// Raw so downstream consumers can forward them unchanged.
type Item struct {
	Type ItemType

	FunctionCall   *FunctionCall
	CustomToolCall *CustomToolCall
	Raw            json.RawMessage
}

// FunctionCall is a model-issued call to a declared function tool.
type FunctionCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// CustomToolCall is a model-issued call to a free-form tool; Input is an
// unconstrained string rather than JSON arguments.
type CustomToolCall struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Input  string `json:"input"`
}

// NewFunctionCallItem builds a typed function_call item.
func NewFunctionCallItem(callID, name, arguments string) *Item {
	return &Item{
		Type:         ItemFunctionCall,
		FunctionCall: &FunctionCall{CallID: callID, Name: name, Arguments: arguments},
	}
}

// NewCustomToolCallItem builds a typed custom_tool_call item.
func NewCustomToolCallItem(callID, name, input string) *Item {
	return &Item{
		Type:           ItemCustomToolCall,
		CustomToolCall: &CustomToolCall{CallID: callID, Name: name, Input: input},
	}
}

// NewRawItem wraps engine item JSON that has no typed representation.
func NewRawItem(itemType ItemType, raw json.RawMessage) *Item {
	return &Item{Type: itemType, Raw: raw}
}

// itemWireBase is the envelope shared by the typed call shapes.
type itemWireBase struct {
	Type ItemType `json:"type"`
}

// MarshalJSON emits the flat wire form: typed call shapes as
// {type, call_id, name, arguments|input}, everything else verbatim.
func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.FunctionCall != nil:
		return json.Marshal(struct {
			itemWireBase
			FunctionCall
		}{itemWireBase{ItemFunctionCall}, *it.FunctionCall})
	case it.CustomToolCall != nil:
		return json.Marshal(struct {
			itemWireBase
			CustomToolCall
		}{itemWireBase{ItemCustomToolCall}, *it.CustomToolCall})
	case len(it.Raw) > 0:
		return it.Raw, nil
	default:
		return []byte("{}"), nil
	}
}

// UnmarshalJSON keeps the raw bytes and decodes the typed call shapes.
func (it *Item) UnmarshalJSON(data []byte) error {
	it.Raw = append(it.Raw[:0], data...)
	it.FunctionCall = nil
	it.CustomToolCall = nil

	var probe itemWireBase
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	it.Type = probe.Type

	switch probe.Type {
	case ItemFunctionCall:
		var fc FunctionCall
		if err := json.Unmarshal(data, &fc); err != nil {
			return err
		}
		it.FunctionCall = &fc
	case ItemCustomToolCall:
		var cc CustomToolCall
		if err := json.Unmarshal(data, &cc); err != nil {
			return err
		}
		it.CustomToolCall = &cc
	}
	return nil
}
