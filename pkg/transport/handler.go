package transport

import (
	"context"

	"github.com/rhuss/bruecke/pkg/api"
)

// ChatCompletionCreator handles the chat completion operation. The
// implementation receives a request and writes the result (a complete
// response or a chunk stream) to the ChatCompletionWriter.
type ChatCompletionCreator interface {
	CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ChatCompletionWriter) error
}

// ResponseCreator handles the responses-dialect create operation. The
// implementation receives a request and writes the result (a complete
// response or typed stream events) to the ResponseWriter.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *api.ResponseRequest, w ResponseWriter) error
}

// Handler is the full operation surface the transport dispatches to. Both
// dialects are served by one implementation so middleware wraps them
// together.
type Handler interface {
	ChatCompletionCreator
	ResponseCreator
}

// ModelCatalog lists the models the adapter advertises on GET /v1/models.
type ModelCatalog interface {
	Models() api.ModelList
}

// ChatCompletionWriter abstracts chat-dialect output for the handler. The
// transport creates one writer per request: a JSON writer for aggregate
// requests, an SSE writer for streaming ones.
//
// WriteCompletion and WriteChunk are mutually exclusive on a single writer.
// After a chunk carrying a non-nil finish reason, or after WriteStreamError,
// the stream is terminal and further writes return an error.
type ChatCompletionWriter interface {
	// WriteCompletion sends a complete non-streaming response.
	WriteCompletion(ctx context.Context, resp *api.ChatCompletionResponse) error

	// WriteChunk sends a single streamed chunk.
	WriteChunk(ctx context.Context, chunk *api.ChatCompletionChunk) error

	// WriteStreamError terminates a stream in-band with an error payload.
	// On a writer that has not streamed anything yet it degrades to a plain
	// HTTP error response.
	WriteStreamError(ctx context.Context, apiErr *api.APIError) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}

// ResponseWriter abstracts responses-dialect output for the handler.
//
// WriteEvent and WriteResponse are mutually exclusive on a single writer.
// Calling WriteEvent after a terminal event (response.completed or
// response.failed) returns an error.
type ResponseWriter interface {
	// WriteResponse sends a complete non-streaming response.
	WriteResponse(ctx context.Context, resp *api.Response) error

	// WriteEvent sends a single streaming event.
	WriteEvent(ctx context.Context, event api.StreamEvent) error

	// Flush ensures buffered data is sent to the client. Returns an error
	// if the client has disconnected.
	Flush() error
}
