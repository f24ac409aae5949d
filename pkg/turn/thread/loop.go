package thread

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/debug"
	"github.com/rhuss/bruecke/pkg/observability"
	"github.com/rhuss/bruecke/pkg/provider"
	"github.com/rhuss/bruecke/pkg/storage"
	"github.com/rhuss/bruecke/pkg/tools"
	"github.com/rhuss/bruecke/pkg/turn"
)

// run executes one turn: the model round-trip and tool-execution loop,
// event emission, and the transcript write. It owns the thread's history
// for the duration of the turn; Submit serializes runs through the active
// flag. When ctx dies the loop winds down without a terminal event; the
// consumer already observed the cancellation through NextEvent.
func (t *Thread) run(ctx context.Context, req turn.Request) {
	defer t.endTurn()

	emit := func(ev turn.Event) bool {
		ev.ID = req.ID
		select {
		case t.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(turn.Event{Type: turn.EventTaskStarted}) {
		return
	}

	model := req.Model
	if model == "" {
		model = t.opts.Model
	}

	t.history = append(t.history, provider.Message{Role: "user", Content: req.Instruction})

	toolDefs := t.mgr.providerTools()

	var (
		total     turn.Usage
		haveUsage bool
		lastText  string
		items     []turn.Item
	)

	maxRounds := t.mgr.cfg.maxToolRounds()
	for round := 0; round < maxRounds; round++ {
		if ctx.Err() != nil {
			return
		}

		provReq := &provider.Request{
			Model:    model,
			Messages: append([]provider.Message(nil), t.history...),
			Tools:    toolDefs,
			Stream:   true,
		}

		debug.Log("turn", "round start",
			"session_id", t.id,
			"request_id", req.ID,
			"round", round,
			"messages", len(provReq.Messages),
		)

		roundStart := time.Now()
		text, calls, usage, err := t.streamRound(ctx, provReq, emit)
		observability.BackendDuration.WithLabelValues(model).Observe(time.Since(roundStart).Seconds())

		if err != nil {
			observability.BackendRequestsTotal.WithLabelValues(model, "error").Inc()
			if ctx.Err() != nil {
				return
			}
			slog.Warn("backend round failed",
				"session_id", t.id,
				"request_id", req.ID,
				"model", model,
				"error", err.Error(),
			)
			// Release the turn slot before the terminal event so the
			// consumer can submit again the moment it observes it.
			t.endTurn()
			emit(turn.Event{Type: turn.EventError, Message: err.Error()})
			return
		}
		observability.BackendRequestsTotal.WithLabelValues(model, "success").Inc()

		if usage != nil {
			total.InputTokens += usage.PromptTokens
			total.OutputTokens += usage.CompletionTokens
			total.TotalTokens += usage.TotalTokens
			haveUsage = true
			observability.TokensTotal.WithLabelValues(model, "input").Add(float64(usage.PromptTokens))
			observability.TokensTotal.WithLabelValues(model, "output").Add(float64(usage.CompletionTokens))
		}

		if ctx.Err() != nil {
			return
		}

		if text != "" {
			t.history = append(t.history, provider.Message{Role: "assistant", Content: text})
			lastText = text
		}
		for _, c := range calls {
			items = append(items, *turn.NewFunctionCallItem(c.ID, c.Function.Name, c.Function.Arguments))
		}

		// No tool calls: final answer.
		if len(calls) == 0 {
			break
		}

		// Calls the router cannot serve go to the API caller; their items
		// were already emitted. Mixed rounds stop too: feeding back a
		// partial result set would leave dangling call ids in the history.
		if !t.routable(calls) {
			break
		}

		// Executing on the last round is pointless, the results could
		// never be fed back to the model within this turn.
		if round == maxRounds-1 {
			emit(turn.Event{Type: turn.EventWarning, Message: "maximum tool rounds reached"})
			break
		}

		// The assistant message carrying the tool calls must precede the
		// tool role result messages per Chat Completions convention.
		t.history = append(t.history, provider.Message{Role: "assistant", ToolCalls: calls})
		for _, r := range t.executeCalls(ctx, calls) {
			t.history = append(t.history, provider.Message{
				Role:       "tool",
				Content:    r.Output,
				ToolCallID: r.CallID,
			})
		}
	}

	t.persistTurn(ctx, req, model, lastText, items, total, haveUsage)

	// Release the turn slot before the terminal event so the consumer can
	// submit again the moment it observes it.
	t.endTurn()

	if haveUsage {
		emit(turn.Event{Type: turn.EventTokenCount, Usage: &total})
	}

	var last *string
	if lastText != "" {
		last = &lastText
	}
	emit(turn.Event{Type: turn.EventTurnComplete, LastAgentMessage: last})
}

// streamRound performs one provider round: it opens the stream, forwards
// text deltas and tool-call items as events, and returns the round's
// aggregate text, calls, and usage. Reasoning deltas are dropped; they
// have no representation in the turn event vocabulary.
func (t *Thread) streamRound(ctx context.Context, provReq *provider.Request, emit func(turn.Event) bool) (string, []provider.ToolCall, *provider.Usage, error) {
	ch, err := t.mgr.provider.Stream(ctx, provReq)
	if err != nil {
		return "", nil, nil, err
	}

	var (
		text  strings.Builder
		calls []provider.ToolCall
		usage *provider.Usage
	)

	for ev := range ch {
		switch ev.Type {
		case provider.EventTextDelta:
			text.WriteString(ev.Delta)
			emit(turn.Event{Type: turn.EventAgentMessageDelta, Delta: ev.Delta})
		case provider.EventToolCallDone:
			if ev.ToolCall == nil {
				continue
			}
			calls = append(calls, *ev.ToolCall)
			emit(turn.Event{
				Type: turn.EventItem,
				Item: turn.NewFunctionCallItem(ev.ToolCall.ID, ev.ToolCall.Function.Name, ev.ToolCall.Function.Arguments),
			})
		case provider.EventDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventError:
			return text.String(), calls, usage, ev.Err
		}
	}

	return text.String(), calls, usage, nil
}

// routable reports whether every call in the round has an executor.
func (t *Thread) routable(calls []provider.ToolCall) bool {
	if t.mgr.router == nil {
		return false
	}
	for _, c := range calls {
		if !t.mgr.router.CanExecute(c.Function.Name) {
			return false
		}
	}
	return true
}

// executeCalls dispatches the round's tool calls through the router in
// parallel and returns the results in call order.
func (t *Thread) executeCalls(ctx context.Context, calls []provider.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(idx int, tc provider.ToolCall) {
			defer wg.Done()

			result, err := t.mgr.router.Execute(ctx, tools.Call{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
			if err != nil {
				slog.Warn("tool execution error",
					"tool", tc.Function.Name,
					"call_id", tc.ID,
					"error", err.Error(),
				)
				results[idx] = tools.Result{CallID: tc.ID, Output: err.Error(), IsError: true}
				observability.ToolExecutionsTotal.WithLabelValues(tc.Function.Name, "error").Inc()
				return
			}

			status := "success"
			if result.IsError {
				status = "error"
			}
			observability.ToolExecutionsTotal.WithLabelValues(tc.Function.Name, status).Inc()
			results[idx] = *result
		}(i, call)
	}

	wg.Wait()
	return results
}

// persistTurn writes the turn's transcript record. Persistence is best
// effort; a failing store never fails the turn.
func (t *Thread) persistTurn(ctx context.Context, req turn.Request, model, output string, items []turn.Item, usage turn.Usage, haveUsage bool) {
	if t.mgr.store == nil {
		return
	}

	rec := storage.TurnRecord{
		ConversationID: t.id,
		RequestID:      req.ID,
		Model:          model,
		Input:          req.Instruction,
		Output:         output,
		CreatedAt:      time.Now().Unix(),
	}
	if len(items) > 0 {
		if raw, err := json.Marshal(items); err == nil {
			rec.Items = raw
		}
	}
	if haveUsage {
		rec.Usage = &api.Usage{
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			TotalTokens:  usage.TotalTokens,
		}
	}

	if err := t.mgr.store.SaveTurn(ctx, rec); err != nil {
		slog.Warn("persisting turn",
			"session_id", t.id,
			"request_id", req.ID,
			"error", err.Error(),
		)
	}
}
