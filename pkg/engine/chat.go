package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/transport"
	"github.com/rhuss/bruecke/pkg/turn"
)

// completeChat drives the turn to completion and writes one aggregate chat
// body. Turn failures surface as errors for the transport's envelope.
func (e *Engine) completeChat(ctx context.Context, req *api.ChatCompletionRequest, turnReq turn.Request, session turn.Session, convID string, w transport.ChatCompletionWriter) error {
	result, apiErr := e.driveTurn(ctx, session, turnReq, func(update) {})
	if apiErr != nil {
		return apiErr
	}
	return w.WriteCompletion(ctx, buildChatCompletion(req.Model, convID, result))
}

// buildChatCompletion assembles the aggregate chat body from a completed
// turn. The reported model is the caller's spelling, not the alias; the
// assistant content is the final text with surrounding whitespace trimmed.
func buildChatCompletion(model, convID string, result *turnResult) *api.ChatCompletionResponse {
	return &api.ChatCompletionResponse{
		ID:      api.NewCompletionID(),
		Object:  api.ObjectChatCompletion,
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []api.ChatChoice{{
			Index: 0,
			Message: api.AssistantMessage{
				Role:      "assistant",
				Content:   strings.TrimSpace(result.text),
				ToolCalls: result.toolCalls,
			},
			FinishReason: result.finishReason(),
		}},
		ConversationID: convID,
	}
}

// streamChatCompletion drives the turn and forwards its updates as chat
// chunks. Every chunk of the stream shares one completion id; the first
// delta-bearing chunk also carries the assistant role. Turn failures after
// the stream has begun are written in-band, so the handler reports success
// to the transport either way.
func (e *Engine) streamChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, turnReq turn.Request, session turn.Session, convID string, w transport.ChatCompletionWriter) error {
	chunkID := api.NewCompletionID()
	created := time.Now().Unix()
	roleSent := false

	newChunk := func(delta api.ChunkDelta, finish *string) *api.ChatCompletionChunk {
		if !roleSent && finish == nil {
			delta.Role = "assistant"
			roleSent = true
		}
		return &api.ChatCompletionChunk{
			ID:             chunkID,
			Object:         api.ObjectChatCompletionChunk,
			Created:        created,
			Model:          req.Model,
			Choices:        []api.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
			ConversationID: convID,
		}
	}

	for u := range e.runTurn(ctx, session, turnReq) {
		switch u.kind {
		case updateText:
			if err := w.WriteChunk(ctx, newChunk(api.ChunkDelta{Content: u.text}, nil)); err != nil {
				return err
			}
		case updateItem:
			call, ok := mapToolCall(u.item)
			if !ok {
				continue
			}
			delta := api.ChunkDelta{ToolCalls: []api.ToolCallDelta{{
				Index:    0,
				ID:       call.ID,
				Type:     call.Type,
				Function: call.Function,
			}}}
			if err := w.WriteChunk(ctx, newChunk(delta, nil)); err != nil {
				return err
			}
		case updateCompleted:
			reason := u.result.finishReason()
			return w.WriteChunk(ctx, newChunk(api.ChunkDelta{}, &reason))
		case updateFailed:
			return w.WriteStreamError(ctx, u.err)
		}
	}

	// The driver wound down without a terminal update: the client is gone.
	return ctx.Err()
}
