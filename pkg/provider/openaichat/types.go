package openaichat

import "github.com/rhuss/bruecke/pkg/provider"

// chatRequest is the Chat Completions request body.
type chatRequest struct {
	Model         string             `json:"model"`
	Messages      []provider.Message `json:"messages"`
	Tools         []provider.Tool    `json:"tools,omitempty"`
	Stream        bool               `json:"stream"`
	StreamOptions *streamOptions     `json:"stream_options,omitempty"`
}

// streamOptions asks the backend to append a usage chunk to the stream.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatChunk is one SSE element of a Chat Completions stream.
type chatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *chatUsage    `json:"usage"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// chunkDelta carries the incremental payload of one chunk. Content is a
// pointer to distinguish absent from empty; ReasoningContent is emitted by
// reasoning-capable backends (e.g. DeepSeek R1 behind vLLM).
type chunkDelta struct {
	Role             string          `json:"role,omitempty"`
	Content          *string         `json:"content,omitempty"`
	ReasoningContent *string         `json:"reasoning_content,omitempty"`
	ToolCalls        []toolCallDelta `json:"tool_calls,omitempty"`
}

// toolCallDelta is an incremental tool call fragment. The first fragment for
// an index carries the id and function name; continuations carry argument
// pieces only.
type toolCallDelta struct {
	Index    int           `json:"index"`
	ID       string        `json:"id,omitempty"`
	Type     string        `json:"type,omitempty"`
	Function functionDelta `json:"function"`
}

type functionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// errorResponse is the backend's JSON error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// modelsResponse is the GET /v1/models body.
type modelsResponse struct {
	Data []provider.ModelInfo `json:"data"`
}
