package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/observability"
	"github.com/rhuss/bruecke/pkg/turn"
)

// updateBuffer is the depth of a streaming turn's update channel. The
// driver blocks once the consumer falls this far behind; a cancelled
// consumer context releases it.
const updateBuffer = 16

// updateKind discriminates the updates a running turn pushes to its
// consumer.
type updateKind int

const (
	updateText updateKind = iota
	updateItem
	updateCompleted
	updateFailed
)

// update is one unit forwarded from the turn driver to the dialect-specific
// consumer. Exactly one terminal update (completed or failed) ends a turn.
type update struct {
	kind   updateKind
	text   string
	item   *turn.Item
	result *turnResult
	err    *api.APIError
}

// turnResult is the assembled outcome of a completed turn.
type turnResult struct {
	text      string
	toolCalls []api.ToolCall
	items     []turn.Item
}

// finishReason derives the chat-dialect finish reason: tool_calls when the
// turn surfaced at least one call item, stop otherwise.
func (r *turnResult) finishReason() string {
	if len(r.toolCalls) > 0 {
		return api.FinishReasonToolCalls
	}
	return api.FinishReasonStop
}

// turnAccumulator folds a turn's event stream into its aggregate outcome.
// It is owned by the driving goroutine and needs no locking.
type turnAccumulator struct {
	text      strings.Builder
	textSeen  bool
	toolCalls []api.ToolCall
	items     []turn.Item
}

// complete folds the terminal turn_complete event into the final result. A
// last aggregated message supersedes everything streamed before it; when no
// text was streamed and that message is non-empty, one synthetic text
// update carries it to stream consumers so they do not end empty-handed.
func (acc *turnAccumulator) complete(ev turn.Event, forward func(update)) *turnResult {
	finalText := acc.text.String()
	if ev.LastAgentMessage != nil {
		finalText = *ev.LastAgentMessage
		if !acc.textSeen && finalText != "" {
			forward(update{kind: updateText, text: finalText})
		}
	}
	return &turnResult{text: finalText, toolCalls: acc.toolCalls, items: acc.items}
}

// driveTurn submits req on session and consumes the session's event stream
// until the turn's terminal event, forwarding streamable updates through
// forward. Aggregate callers pass a no-op forward and use the returned
// result.
func (e *Engine) driveTurn(ctx context.Context, session turn.Session, req turn.Request, forward func(update)) (*turnResult, *api.APIError) {
	result, apiErr := e.consumeTurn(ctx, session, req, forward)

	status := "completed"
	if apiErr != nil {
		status = "failed"
	}
	observability.TurnsTotal.WithLabelValues(e.cfg.Binding, req.Model, status).Inc()
	return result, apiErr
}

func (e *Engine) consumeTurn(ctx context.Context, session turn.Session, req turn.Request, forward func(update)) (*turnResult, *api.APIError) {
	if err := session.Submit(ctx, req); err != nil {
		return nil, submissionError(err)
	}

	var acc turnAccumulator
	for {
		ev, err := session.NextEvent(ctx)
		if err != nil {
			return nil, eventStreamError(err)
		}
		// The stream multiplexes every turn of the session; only events
		// tagged with our id belong to this turn.
		if ev.ID != req.ID {
			continue
		}
		observability.TurnEventsTotal.WithLabelValues(string(ev.Type)).Inc()

		switch ev.Type {
		case turn.EventAgentMessage:
			// Whole messages keep their trailing newline in both the
			// aggregate buffer and the stream, so the two stay equal.
			text := ev.Message + "\n"
			acc.text.WriteString(text)
			acc.textSeen = true
			forward(update{kind: updateText, text: text})
		case turn.EventAgentMessageDelta:
			acc.text.WriteString(ev.Delta)
			acc.textSeen = true
			forward(update{kind: updateText, text: ev.Delta})
		case turn.EventItem:
			if ev.Item == nil {
				continue
			}
			acc.items = append(acc.items, *ev.Item)
			if call, ok := mapToolCall(ev.Item); ok {
				acc.toolCalls = append(acc.toolCalls, call)
			}
			forward(update{kind: updateItem, item: ev.Item})
		case turn.EventWarning:
			slog.Warn("turn warning", "turn_id", req.ID, "message", ev.Message)
		case turn.EventTurnComplete:
			return acc.complete(ev, forward), nil
		case turn.EventError:
			return nil, upstreamTurnError(ev.Message)
		case turn.EventTurnAborted:
			return nil, turnAbortedError(ev.Reason)
		}
	}
}

// runTurn drives a turn on its own goroutine and returns the channel its
// updates arrive on. The channel carries at most one terminal update and is
// closed after it. When ctx is cancelled the driver stops sending and winds
// down without a terminal update.
func (e *Engine) runTurn(ctx context.Context, session turn.Session, req turn.Request) <-chan update {
	ch := make(chan update, updateBuffer)
	send := func(u update) {
		select {
		case ch <- u:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(ch)
		result, apiErr := e.driveTurn(ctx, session, req, send)
		if apiErr != nil {
			send(update{kind: updateFailed, err: apiErr})
			return
		}
		send(update{kind: updateCompleted, result: result})
	}()
	return ch
}
