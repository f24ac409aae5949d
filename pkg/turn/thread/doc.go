// Package thread provides the session-backed turn engine. A Manager hands
// out Threads keyed by session id; each Thread keeps its conversation
// history across turns and runs the model round-trip and tool-execution
// loop for one turn at a time.
//
// Tool calls the configured router can serve are executed server-side and
// their results fed back to the model in bounded rounds; calls no executor
// provides are surfaced as item events and end the turn. Approval and
// sandbox options are recorded on the session but have no local effect:
// tool execution happens on remote MCP servers.
package thread
