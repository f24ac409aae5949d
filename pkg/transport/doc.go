// Package transport defines the handler interfaces and middleware chain for
// the bruecke HTTP/SSE transport layer.
//
// The transport layer bridges external clients and the engine that drives
// turns. It deserializes incoming requests into the wire types defined in
// pkg/api, dispatches them for processing, and serializes results back to
// the client in either synchronous (JSON) or streaming (SSE) form.
//
// # Handler Interfaces
//
// Two handler interfaces define the contract between the transport layer
// and the engine:
//
//   - ChatCompletionCreator serves the chat completion dialect.
//   - ResponseCreator serves the responses dialect.
//
// Handler combines both; one engine implementation serves the two dialects
// and middleware wraps them together. The writer interfaces
// (ChatCompletionWriter, ResponseWriter) abstract streaming and
// non-streaming output, so the handler emits chunks, typed events, or
// complete JSON bodies without knowing the underlying protocol.
//
// # Middleware
//
// The middleware chain wraps Handler with cross-cutting concerns. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// and structured logging via log/slog. Custom middleware can be added for
// application-specific concerns.
package transport
