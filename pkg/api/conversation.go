package api

import "encoding/json"

// ObjectConversation is the object discriminator of a conversation transcript.
const ObjectConversation = "conversation"

// Conversation is the GET /v1/conversations/{id} response body: the stored
// transcript of a session, one entry per completed turn.
type Conversation struct {
	ID     string             `json:"id"`
	Object string             `json:"object"`
	Turns  []ConversationTurn `json:"turns"`
}

// ConversationTurn is one recorded turn of a conversation.
type ConversationTurn struct {
	RequestID string          `json:"request_id"`
	Model     string          `json:"model"`
	Input     string          `json:"input"`
	Output    string          `json:"output"`
	Items     json.RawMessage `json:"items,omitempty"`
	Usage     *Usage          `json:"usage,omitempty"`
	CreatedAt int64           `json:"created_at"`
}
