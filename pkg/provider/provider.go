// Package provider defines the interface to LLM inference backends consumed
// by the engine bindings. Each adapter handles its own backend protocol
// internally; the interface operates on bruecke's own types (Request,
// Message, Event), keeping backend protocol details invisible to callers.
package provider

import (
	"context"
	"encoding/json"
)

// Provider abstracts an LLM inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openaichat").
	Name() string

	// Stream performs streaming inference. The returned channel receives
	// Event values and is closed by the provider when the stream completes
	// or errors.
	Stream(ctx context.Context, req *Request) (<-chan Event, error)

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Request is the backend-facing inference request. It contains only what
// the provider needs, stripped of transport and session concerns.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// Message is one entry of the provider's conversation format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation attached to an assistant message.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and raw argument string of a call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a callable function to the backend.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a function tool: name, description, and its JSON
// schema parameters carried opaquely.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// EventType classifies a streaming event from the backend.
type EventType int

const (
	// EventTextDelta carries an incremental text fragment.
	EventTextDelta EventType = iota
	// EventReasoningDelta carries an incremental reasoning fragment.
	EventReasoningDelta
	// EventToolCallDone carries one fully assembled tool call.
	EventToolCallDone
	// EventDone ends the stream, carrying the finish reason and, when the
	// backend reports it, token usage.
	EventDone
	// EventError ends the stream with a failure.
	EventError
)

// Event is a single streaming event from the backend.
type Event struct {
	Type EventType

	// Delta holds the text fragment of delta events.
	Delta string
	// ToolCall holds the assembled call of an EventToolCallDone.
	ToolCall *ToolCall
	// FinishReason holds the backend's finish reason on EventDone.
	FinishReason string
	// Usage holds token accounting on EventDone when reported.
	Usage *Usage
	// Err holds the failure of an EventError.
	Err error
}

// Usage is the backend's token accounting in chat-completions naming.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelInfo identifies a model served by the provider.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
