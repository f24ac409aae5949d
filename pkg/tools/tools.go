package tools

import (
	"context"
	"encoding/json"
)

// Definition describes a tool that can be offered to the model. Parameters
// holds the JSON Schema for the tool's arguments.
type Definition struct {
	// Name is the tool function name presented to the model.
	Name string

	// Description explains what the tool does, for model consumption.
	Description string

	// Parameters is the JSON Schema describing the tool's arguments.
	Parameters json.RawMessage
}

// Call represents a model's request to invoke a tool.
type Call struct {
	// ID is the unique call identifier (from the model, e.g., "call_abc123").
	ID string

	// Name is the tool function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// Result represents the output of a tool execution.
type Result struct {
	// CallID matches the originating Call.ID.
	CallID string

	// Output is the tool output content (text).
	Output string

	// IsError indicates that the output is an error message.
	IsError bool
}

// Executor executes tool calls for one family of tools. The engine never
// talks to an executor directly; it goes through the Router, which owns
// the name-based dispatch.
type Executor interface {
	// Definitions returns the tool definitions this executor provides.
	Definitions() []Definition

	// CanExecute reports whether this executor handles the named tool.
	CanExecute(toolName string) bool

	// Execute runs the tool and returns the result. Tool-level failures
	// are reported as a Result with IsError set, not as an error; the
	// error return is reserved for transport and protocol failures.
	Execute(ctx context.Context, call Call) (*Result, error)
}
