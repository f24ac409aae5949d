package openaichat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/rhuss/bruecke/pkg/provider"
)

// toolCallBuffer assembles one tool call's arguments across chunks.
type toolCallBuffer struct {
	id   string
	name string
	args strings.Builder
}

// parseSSEStream reads Chat Completions SSE chunks from body, translates
// them to provider events, and sends them on ch. The channel is not closed
// here; the caller owns it.
//
// The finish_reason chunk and a trailing usage-only chunk both produce an
// EventDone; consumers take the finish reason from the first and the usage
// from whichever carries it. Malformed chunks are logged and skipped.
// Context cancellation stops reading immediately.
func parseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)
	toolCalls := make(map[int]*toolCallBuffer)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// Lines without a data field are ignored (blank lines, comments).
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		translateChunk(&chunk, toolCalls, ch)
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		ch <- provider.Event{
			Type: provider.EventError,
			Err:  mapStreamError(err),
		}
	}
}

// translateChunk converts one chunk into provider events on ch.
func translateChunk(chunk *chatChunk, toolCalls map[int]*toolCallBuffer, ch chan<- provider.Event) {
	if len(chunk.Choices) == 0 {
		// Usage-only chunk sent when stream_options.include_usage is set.
		if chunk.Usage != nil {
			ch <- provider.Event{
				Type:  provider.EventDone,
				Usage: convertUsage(chunk.Usage),
			}
		}
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	if choice.FinishReason != nil {
		flushToolCalls(toolCalls, ch)
		ch <- provider.Event{
			Type:         provider.EventDone,
			FinishReason: *choice.FinishReason,
			Usage:        convertUsage(chunk.Usage),
		}
		return
	}

	if len(delta.ToolCalls) > 0 {
		for _, tc := range delta.ToolCalls {
			buf, exists := toolCalls[tc.Index]
			if !exists {
				buf = &toolCallBuffer{id: tc.ID, name: tc.Function.Name}
				toolCalls[tc.Index] = buf
			}
			buf.args.WriteString(tc.Function.Arguments)
		}
		return
	}

	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		ch <- provider.Event{
			Type:  provider.EventReasoningDelta,
			Delta: *delta.ReasoningContent,
		}
		// The same chunk may also carry text content.
	}

	if delta.Content != nil && *delta.Content != "" {
		ch <- provider.Event{
			Type:  provider.EventTextDelta,
			Delta: *delta.Content,
		}
	}

	// Role-only or empty deltas carry nothing to forward.
}

// flushToolCalls emits EventToolCallDone for each buffered call in index
// order and clears the buffer.
func flushToolCalls(toolCalls map[int]*toolCallBuffer, ch chan<- provider.Event) {
	indices := make([]int, 0, len(toolCalls))
	for idx := range toolCalls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		buf := toolCalls[idx]
		ch <- provider.Event{
			Type: provider.EventToolCallDone,
			ToolCall: &provider.ToolCall{
				ID:   buf.id,
				Type: "function",
				Function: provider.FunctionCall{
					Name:      buf.name,
					Arguments: buf.args.String(),
				},
			},
		}
		delete(toolCalls, idx)
	}
}

func convertUsage(u *chatUsage) *provider.Usage {
	if u == nil {
		return nil
	}
	return &provider.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
