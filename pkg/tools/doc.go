// Package tools defines the tool execution contract used by the thread
// engine's tool loop. Executors implement one family of tools each (MCP
// servers today); the Router merges their definitions and dispatches calls
// by name, so the engine only ever sees a single executor surface.
//
// Tool-level failures travel inside Result with IsError set and are fed
// back to the model; Go errors are reserved for transport failures that
// should abort the turn.
//
// This package has no external dependencies.
package tools
