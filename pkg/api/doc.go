// Package api defines the wire types for the bruecke compatibility surface.
//
// bruecke speaks two request dialects over the same engine: the Chat
// Completions shape (messages, choices, chunk deltas) and the Responses
// shape (input items, output items, typed stream events). This package holds
// the JSON types for both, the shared error envelope, and ID generation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Polymorphic request fields (string-or-array message
// content, string-or-array input) are modeled as union types with custom
// (un)marshaling so handlers never touch raw JSON.
//
// Core types:
//   - [ChatCompletionRequest] / [ChatCompletionResponse] / [ChatCompletionChunk]: chat dialect
//   - [ResponseRequest] / [Response] / [StreamEvent]: responses dialect
//   - [APIError]: two-field error envelope (type, message)
package api
