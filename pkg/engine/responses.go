package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/transport"
	"github.com/rhuss/bruecke/pkg/turn"
)

// completeResponse drives the turn to completion and writes one aggregate
// responses-dialect body.
func (e *Engine) completeResponse(ctx context.Context, req *api.ResponseRequest, turnReq turn.Request, session turn.Session, convID string, w transport.ResponseWriter) error {
	result, apiErr := e.driveTurn(ctx, session, turnReq, func(update) {})
	if apiErr != nil {
		return apiErr
	}
	resp := buildResponse(api.NewResponseID(), time.Now().Unix(), req.Model, convID, result)
	return w.WriteResponse(ctx, resp)
}

// buildResponse assembles the completed response body: the turn's items in
// arrival order, then a message item carrying the trimmed final text when
// there is any.
func buildResponse(id string, createdAt int64, model, convID string, result *turnResult) *api.Response {
	output := make([]api.OutputItem, 0, len(result.items)+1)
	for i := range result.items {
		output = append(output, api.RawItem(itemJSON(&result.items[i])))
	}
	if text := strings.TrimSpace(result.text); text != "" {
		output = append(output, api.MessageItem(api.NewOutputMessage(text)))
	}

	return &api.Response{
		ID:             id,
		Object:         api.ObjectResponse,
		CreatedAt:      createdAt,
		Status:         api.ResponseStatusCompleted,
		Model:          model,
		Output:         output,
		Usage:          &api.Usage{},
		ConversationID: convID,
	}
}

// failedResponse assembles the response body carried by a response.failed
// event.
func failedResponse(id string, createdAt int64, model, convID string, apiErr *api.APIError) *api.Response {
	return &api.Response{
		ID:             id,
		Object:         api.ObjectResponse,
		CreatedAt:      createdAt,
		Status:         api.ResponseStatusFailed,
		Model:          model,
		Output:         make([]api.OutputItem, 0),
		Error:          apiErr,
		ConversationID: convID,
	}
}

// streamResponse drives the turn and forwards its updates as typed events:
// response.created before the turn starts, text deltas and item-done events
// in arrival order, then response.completed carrying the assembled body.
// Failures after response.created are written in-band as response.failed.
func (e *Engine) streamResponse(ctx context.Context, req *api.ResponseRequest, turnReq turn.Request, session turn.Session, convID string, w transport.ResponseWriter) error {
	respID := api.NewResponseID()
	createdAt := time.Now().Unix()

	seq := 0
	nextSeq := func() int {
		s := seq
		seq++
		return s
	}

	created := &api.Response{
		ID:             respID,
		Object:         api.ObjectResponse,
		CreatedAt:      createdAt,
		Status:         api.ResponseStatusInProgress,
		Model:          req.Model,
		Output:         make([]api.OutputItem, 0),
		ConversationID: convID,
	}
	if err := w.WriteEvent(ctx, api.StreamEvent{
		Type:           api.EventResponseCreated,
		SequenceNumber: nextSeq(),
		Response:       created,
	}); err != nil {
		return err
	}

	for u := range e.runTurn(ctx, session, turnReq) {
		switch u.kind {
		case updateText:
			ev := api.StreamEvent{
				Type:           api.EventOutputTextDelta,
				SequenceNumber: nextSeq(),
				Delta:          u.text,
			}
			if err := w.WriteEvent(ctx, ev); err != nil {
				return err
			}
		case updateItem:
			ev := api.StreamEvent{
				Type:           api.EventOutputItemDone,
				SequenceNumber: nextSeq(),
				Item:           itemJSON(u.item),
			}
			if err := w.WriteEvent(ctx, ev); err != nil {
				return err
			}
		case updateCompleted:
			resp := buildResponse(respID, createdAt, req.Model, convID, u.result)
			return w.WriteEvent(ctx, api.StreamEvent{
				Type:           api.EventResponseCompleted,
				SequenceNumber: nextSeq(),
				Response:       resp,
			})
		case updateFailed:
			resp := failedResponse(respID, createdAt, req.Model, convID, u.err)
			return w.WriteEvent(ctx, api.StreamEvent{
				Type:           api.EventResponseFailed,
				SequenceNumber: nextSeq(),
				Response:       resp,
				Error:          u.err,
			})
		}
	}

	// The driver wound down without a terminal update: the client is gone.
	return ctx.Err()
}
