package storage

import (
	"context"
	"encoding/json"

	"github.com/rhuss/bruecke/pkg/api"
)

// TurnRecord is one completed turn of a conversation as persisted by a
// ConversationStore.
type TurnRecord struct {
	// ConversationID identifies the conversation this turn belongs to.
	ConversationID string

	// RequestID is the turn request id, unique across all conversations.
	RequestID string

	// Model is the model the turn ran against, as supplied by the caller.
	Model string

	// Input is the merged instruction text submitted for the turn.
	Input string

	// Output is the final assistant text of the turn.
	Output string

	// Items holds the turn's non-message items (tool calls, reasoning)
	// as a JSON array. Nil when the turn produced none.
	Items json.RawMessage

	// Usage is the token usage reported by the backend, nil if unknown.
	Usage *api.Usage

	// CreatedAt is the turn completion time in unix seconds.
	CreatedAt int64
}

// ConversationStore persists conversation transcripts, one TurnRecord per
// completed turn. Implementations live in the memory and postgres
// subpackages.
type ConversationStore interface {
	// SaveTurn appends a completed turn to its conversation's transcript.
	// Returns ErrConflict if a turn with the same request id exists.
	SaveTurn(ctx context.Context, rec TurnRecord) error

	// ListTurns returns a conversation's turns in completion order.
	// Returns ErrNotFound if no turn has been recorded for the id.
	ListTurns(ctx context.Context, conversationID string) ([]TurnRecord, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
