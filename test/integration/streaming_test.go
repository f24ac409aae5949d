package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

// chatChunk mirrors the wire shape of a streamed chat completion chunk.
type chatChunk struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      string `json:"role"`
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	ConversationID string `json:"conversation_id"`
}

// streamEvent mirrors the wire shape of a responses stream event.
type streamEvent struct {
	Type           string          `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	Response       *responseBody   `json:"response"`
	Item           json.RawMessage `json:"item"`
	Delta          string          `json:"delta"`
	Error          *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func decodeChatChunks(t *testing.T, frames []sseFrame) []chatChunk {
	t.Helper()
	var chunks []chatChunk
	for _, f := range dataFrames(frames) {
		if f.Event != "" {
			t.Errorf("chat stream frame carries event name %q", f.Event)
		}
		var c chatChunk
		decodeJSON(t, []byte(f.Data), &c)
		chunks = append(chunks, c)
	}
	return chunks
}

func decodeStreamEvents(t *testing.T, frames []sseFrame) []streamEvent {
	t.Helper()
	var events []streamEvent
	for _, f := range dataFrames(frames) {
		var ev streamEvent
		decodeJSON(t, []byte(f.Data), &ev)
		if f.Event != ev.Type {
			t.Errorf("SSE event name %q does not match payload type %q", f.Event, ev.Type)
		}
		events = append(events, ev)
	}
	return events
}

func TestChatStreaming_Basic(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/chat/completions", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"messages": []map[string]any{
			{"role": "user", "content": "Say hello"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	frames := readSSE(t, resp)

	if got := countDone(frames); got != 1 {
		t.Errorf("expected exactly one [DONE], got %d", got)
	}
	if frames[len(frames)-1].Data != "[DONE]" {
		t.Errorf("expected [DONE] last, got %q", frames[len(frames)-1].Data)
	}

	chunks := decodeChatChunks(t, frames)
	if len(chunks) < 2 {
		t.Fatalf("expected at least a delta and a terminal chunk, got %d", len(chunks))
	}

	var text strings.Builder
	for i, c := range chunks {
		if c.Object != "chat.completion.chunk" {
			t.Errorf("chunk %d: expected object chat.completion.chunk, got %q", i, c.Object)
		}
		if c.ID != chunks[0].ID {
			t.Errorf("chunk %d: id %q differs from first chunk %q", i, c.ID, chunks[0].ID)
		}
		if c.ConversationID == "" {
			t.Errorf("chunk %d: missing conversation_id", i)
		}
		if len(c.Choices) != 1 {
			t.Fatalf("chunk %d: expected 1 choice, got %d", i, len(c.Choices))
		}
		text.WriteString(c.Choices[0].Delta.Content)
	}
	if !strings.HasPrefix(chunks[0].ID, "chatcmpl-") {
		t.Errorf("expected chatcmpl- id prefix, got %q", chunks[0].ID)
	}
	if chunks[0].Choices[0].Delta.Role != "assistant" {
		t.Errorf("expected assistant role on first chunk, got %q", chunks[0].Choices[0].Delta.Role)
	}
	if got := strings.TrimSpace(text.String()); got != "Hello from mock!" {
		t.Errorf("concatenated deltas = %q", got)
	}

	last := chunks[len(chunks)-1]
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "stop" {
		t.Errorf("expected terminal finish_reason stop, got %v", last.Choices[0].FinishReason)
	}
	if last.Choices[0].Delta.Content != "" || last.Choices[0].Delta.Role != "" {
		t.Error("terminal chunk must carry an empty delta")
	}
	for _, c := range chunks[:len(chunks)-1] {
		if c.Choices[0].FinishReason != nil {
			t.Errorf("non-terminal chunk carries finish_reason %q", *c.Choices[0].FinishReason)
		}
	}
}

func TestChatStreaming_MultiChunk(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/chat/completions", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"messages": []map[string]any{
			{"role": "user", "content": "Please count from 1 to 5"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	chunks := decodeChatChunks(t, readSSE(t, resp))

	var text strings.Builder
	deltaChunks := 0
	for _, c := range chunks {
		if c.Choices[0].Delta.Content != "" {
			deltaChunks++
		}
		text.WriteString(c.Choices[0].Delta.Content)
	}
	if deltaChunks < 2 {
		t.Errorf("expected the completion split across chunks, got %d delta chunks", deltaChunks)
	}
	if got := strings.TrimSpace(text.String()); got != "1, 2, 3, 4, 5" {
		t.Errorf("concatenated deltas = %q", got)
	}
}

func TestChatStreaming_ToolLoop(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/chat/completions", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"messages": []map[string]any{
			{"role": "user", "content": "What is the weather in San Francisco?"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	chunks := decodeChatChunks(t, readSSE(t, resp))

	var text strings.Builder
	toolCallIdx := -1
	firstTextIdx := -1
	for i, c := range chunks {
		d := c.Choices[0].Delta
		if len(d.ToolCalls) > 0 {
			if toolCallIdx != -1 {
				t.Error("expected the tool call in a single chunk")
			}
			toolCallIdx = i
			tc := d.ToolCalls[0]
			if tc.Index != 0 {
				t.Errorf("expected tool call index 0, got %d", tc.Index)
			}
			if tc.ID != "call_weather1" || tc.Type != "function" {
				t.Errorf("unexpected tool call identity: id=%q type=%q", tc.ID, tc.Type)
			}
			if tc.Function.Name != "get_weather" {
				t.Errorf("expected get_weather, got %q", tc.Function.Name)
			}
			if !strings.Contains(tc.Function.Arguments, "San Francisco") {
				t.Errorf("arguments not reassembled: %q", tc.Function.Arguments)
			}
		}
		if d.Content != "" && firstTextIdx == -1 {
			firstTextIdx = i
		}
		text.WriteString(d.Content)
	}

	if toolCallIdx == -1 {
		t.Fatal("no tool call chunk in stream")
	}
	if firstTextIdx == -1 {
		t.Fatal("no text deltas in stream")
	}
	if toolCallIdx > firstTextIdx {
		t.Error("tool call must precede the follow-up text")
	}
	if got := strings.TrimSpace(text.String()); got != "The weather is sunny, 22°C." {
		t.Errorf("concatenated deltas = %q", got)
	}
	last := chunks[len(chunks)-1]
	if last.Choices[0].FinishReason == nil || *last.Choices[0].FinishReason != "tool_calls" {
		t.Errorf("expected finish_reason tool_calls, got %v", last.Choices[0].FinishReason)
	}
}

func TestChatStreaming_MidStreamFailure(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/chat/completions", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"messages": []map[string]any{
			{"role": "user", "content": "This backend is flaky"},
		},
	})
	// The stream starts before the backend dies, so the HTTP status is
	// already committed and the failure travels in-band.
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	frames := readSSE(t, resp)

	if got := countDone(frames); got != 1 {
		t.Errorf("expected exactly one [DONE], got %d", got)
	}
	data := dataFrames(frames)
	if len(data) < 2 {
		t.Fatalf("expected content and an error frame, got %d frames", len(data))
	}

	var errFrame struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	decodeJSON(t, []byte(data[len(data)-1].Data), &errFrame)
	if errFrame.Error == nil {
		t.Fatalf("expected an error frame last, got %s", data[len(data)-1].Data)
	}
	if errFrame.Error.Type != "internal_error" {
		t.Errorf("expected internal_error, got %q", errFrame.Error.Type)
	}
	if !strings.Contains(errFrame.Error.Message, "upstream turn error") {
		t.Errorf("unexpected error message: %q", errFrame.Error.Message)
	}

	var partial chatChunk
	decodeJSON(t, []byte(data[len(data)-2].Data), &partial)
	if !strings.Contains(partial.Choices[0].Delta.Content, "Partial") {
		t.Errorf("expected partial content before the error, got %q", partial.Choices[0].Delta.Content)
	}
}

func TestResponsesStreaming_Basic(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"input":  "Say hello",
	})
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	frames := readSSE(t, resp)

	if got := countDone(frames); got != 1 {
		t.Errorf("expected exactly one [DONE], got %d", got)
	}
	events := decodeStreamEvents(t, frames)
	if len(events) < 2 {
		t.Fatalf("expected at least created and completed, got %d events", len(events))
	}

	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Errorf("event %d: sequence_number %d", i, ev.SequenceNumber)
		}
	}

	created := events[0]
	if created.Type != "response.created" {
		t.Fatalf("expected response.created first, got %q", created.Type)
	}
	if created.Response == nil || created.Response.Status != "in_progress" {
		t.Error("response.created must carry an in_progress response")
	}
	if created.Response != nil && len(created.Response.Output) != 0 {
		t.Errorf("response.created output must be empty, got %d items", len(created.Response.Output))
	}

	var text strings.Builder
	for _, ev := range events[1 : len(events)-1] {
		if ev.Type != "response.output_text.delta" {
			t.Errorf("unexpected mid-stream event %q", ev.Type)
			continue
		}
		text.WriteString(ev.Delta)
	}
	if got := strings.TrimSpace(text.String()); got != "Hello from mock!" {
		t.Errorf("concatenated deltas = %q", got)
	}

	completed := events[len(events)-1]
	if completed.Type != "response.completed" {
		t.Fatalf("expected response.completed last, got %q", completed.Type)
	}
	if completed.Response == nil {
		t.Fatal("response.completed must carry the response")
	}
	if completed.Response.Status != "completed" {
		t.Errorf("expected status completed, got %q", completed.Response.Status)
	}
	if completed.Response.ID != created.Response.ID {
		t.Errorf("response id changed mid-stream: %q vs %q", completed.Response.ID, created.Response.ID)
	}
	if len(completed.Response.Output) != 1 {
		t.Fatalf("expected 1 output item, got %d", len(completed.Response.Output))
	}
	if got := messageText(t, completed.Response.Output[0]); got != "Hello from mock!" {
		t.Errorf("assembled output text = %q", got)
	}
}

func TestResponsesStreaming_ToolLoop(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"input":  "What is the weather in San Francisco?",
	})
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	events := decodeStreamEvents(t, readSSE(t, resp))

	itemIdx := -1
	firstDeltaIdx := -1
	for i, ev := range events {
		switch ev.Type {
		case "response.output_item.done":
			if itemIdx != -1 {
				t.Error("expected a single item event")
			}
			itemIdx = i
			var fc functionCallItem
			decodeJSON(t, ev.Item, &fc)
			if fc.Type != "function_call" || fc.Name != "get_weather" {
				t.Errorf("unexpected item: type=%q name=%q", fc.Type, fc.Name)
			}
		case "response.output_text.delta":
			if firstDeltaIdx == -1 {
				firstDeltaIdx = i
			}
		}
	}
	if itemIdx == -1 {
		t.Fatal("no output_item.done event in stream")
	}
	if firstDeltaIdx != -1 && itemIdx > firstDeltaIdx {
		t.Error("item event must precede the follow-up text")
	}

	completed := events[len(events)-1]
	if completed.Type != "response.completed" {
		t.Fatalf("expected response.completed last, got %q", completed.Type)
	}
	if len(completed.Response.Output) != 2 {
		t.Fatalf("expected 2 output items, got %d", len(completed.Response.Output))
	}
	if got := itemType(t, completed.Response.Output[0]); got != "function_call" {
		t.Errorf("expected function_call first, got %q", got)
	}
	if got := messageText(t, completed.Response.Output[1]); got != "The weather is sunny, 22°C." {
		t.Errorf("assembled output text = %q", got)
	}
}

func TestResponsesStreaming_BackendFailure(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model":  "gpt-4o",
		"stream": true,
		"input":  "boom",
	})
	// response.created goes out before the turn runs, so the failure
	// arrives as a response.failed event on an already-open stream.
	if resp.StatusCode != http.StatusOK {
		body := readBody(t, resp)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	frames := readSSE(t, resp)

	if got := countDone(frames); got != 1 {
		t.Errorf("expected exactly one [DONE], got %d", got)
	}
	events := decodeStreamEvents(t, frames)
	if events[0].Type != "response.created" {
		t.Fatalf("expected response.created first, got %q", events[0].Type)
	}

	failed := events[len(events)-1]
	if failed.Type != "response.failed" {
		t.Fatalf("expected response.failed last, got %q", failed.Type)
	}
	if failed.Response == nil || failed.Response.Status != "failed" {
		t.Error("response.failed must carry a failed response")
	}
	if failed.Response.Error == nil {
		t.Fatal("failed response must carry the error")
	}
	if failed.Response.Error.Type != "internal_error" {
		t.Errorf("expected internal_error, got %q", failed.Response.Error.Type)
	}
}
