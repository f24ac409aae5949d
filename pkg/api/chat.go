package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object type discriminators used on the chat completion wire format.
const (
	ObjectChatCompletion      = "chat.completion"
	ObjectChatCompletionChunk = "chat.completion.chunk"
)

// Finish reasons reported in chat completion choices.
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

// ChatCompletionRequest is the request body for POST /v1/chat/completions.
// Unknown tuning fields (temperature, penalties, ...) are accepted and
// ignored; the backing engine owns generation policy.
type ChatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []ChatMessage `json:"messages"`
	Stream         bool          `json:"stream,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// ChatMessage is a single role-tagged message in a chat completion request.
type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is the polymorphic content field of a chat message: either
// a plain JSON string or an array of content parts. IsText reports which
// form was on the wire.
type MessageContent struct {
	Text   string
	Parts  []ContentPart
	IsText bool
}

// TextContent returns a MessageContent holding a plain string.
func TextContent(s string) MessageContent {
	return MessageContent{Text: s, IsText: true}
}

// UnmarshalJSON accepts either form; anything else is rejected.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*c = MessageContent{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.IsText = true
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of content parts: %w", err)
	}
	c.Parts = parts
	c.Text = ""
	c.IsText = false
	return nil
}

// MarshalJSON emits the form the content was parsed from.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return []byte("null"), nil
}

// ContentPart is one element of array-form message content. Clients disagree
// on the field carrying the text payload, so both "text" and "content" are
// kept raw and resolved by TextValue.
type ContentPart struct {
	Type    string          `json:"type,omitempty"`
	Text    json.RawMessage `json:"text,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// TextValue resolves the part's text payload: the "text" field when present,
// otherwise the "content" field. A present field that is not a JSON string
// disqualifies the part.
func (p ContentPart) TextValue() (string, bool) {
	raw := p.Text
	if raw == nil {
		raw = p.Content
	}
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ChatCompletionResponse is the aggregate (non-streaming) response body.
type ChatCompletionResponse struct {
	ID             string       `json:"id"`
	Object         string       `json:"object"`
	Created        int64        `json:"created"`
	Model          string       `json:"model"`
	Choices        []ChatChoice `json:"choices"`
	Usage          ChatUsage    `json:"usage"`
	ConversationID string       `json:"conversation_id,omitempty"`
}

// ChatChoice is a single completion choice. The adapter always produces
// exactly one, at index 0.
type ChatChoice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// AssistantMessage is the assistant turn inside a chat choice.
type AssistantMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is an external tool invocation surfaced to the caller. Type is
// always "function".
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the callee name and its raw argument string.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatUsage reports token accounting in the chat dialect. The adapter has no
// token visibility and reports zeros.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one streamed SSE element in the chat dialect. All
// chunks of one stream share a single ID.
type ChatCompletionChunk struct {
	ID             string        `json:"id"`
	Object         string        `json:"object"`
	Created        int64         `json:"created"`
	Model          string        `json:"model"`
	Choices        []ChunkChoice `json:"choices"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// ChunkChoice is the delta-bearing choice of a streamed chunk. FinishReason
// is null on every chunk except the terminal one.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta carries the incremental payload of one chunk: a text fragment,
// a tool call, or nothing (terminal chunk).
type ChunkDelta struct {
	Role      string          `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

// ToolCallDelta is a tool call delivered inside a streamed delta. The
// adapter emits each call whole in a single chunk at index 0.
type ToolCallDelta struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}
