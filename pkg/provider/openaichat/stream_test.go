package openaichat

import (
	"context"
	"strings"
	"testing"

	"github.com/rhuss/bruecke/pkg/provider"
)

// collectEvents runs parseSSEStream over sseData and returns all events.
func collectEvents(t *testing.T, sseData string) []provider.Event {
	t.Helper()
	ch := make(chan provider.Event, 64)

	go func() {
		defer close(ch)
		parseSSEStream(context.Background(), strings.NewReader(sseData), ch)
	}()

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestParseSSEStream_TextDeltas(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != provider.EventTextDelta || events[0].Delta != "Hel" {
		t.Errorf("events[0] = %+v, want text delta %q", events[0], "Hel")
	}
	if events[1].Type != provider.EventTextDelta || events[1].Delta != "lo" {
		t.Errorf("events[1] = %+v, want text delta %q", events[1], "lo")
	}
	if events[2].Type != provider.EventDone || events[2].FinishReason != "stop" {
		t.Errorf("events[2] = %+v, want done with finish_reason stop", events[2])
	}
}

func TestParseSSEStream_ToolCallAssembly(t *testing.T) {
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"lookup","arguments":""}}]},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"q\":"}}]},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"go\"}"}}]},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	if len(events) != 2 {
		t.Fatalf("got %d events, want tool call done + done: %+v", len(events), events)
	}

	tc := events[0]
	if tc.Type != provider.EventToolCallDone || tc.ToolCall == nil {
		t.Fatalf("events[0] = %+v, want tool call done", tc)
	}
	if tc.ToolCall.ID != "call_1" {
		t.Errorf("ToolCall.ID = %q, want %q", tc.ToolCall.ID, "call_1")
	}
	if tc.ToolCall.Function.Name != "lookup" {
		t.Errorf("Function.Name = %q, want %q", tc.ToolCall.Function.Name, "lookup")
	}
	if got := tc.ToolCall.Function.Arguments; got != `{"q":"go"}` {
		t.Errorf("Function.Arguments = %q, want %q", got, `{"q":"go"}`)
	}

	if events[1].Type != provider.EventDone || events[1].FinishReason != "tool_calls" {
		t.Errorf("events[1] = %+v, want done with finish_reason tool_calls", events[1])
	}
}

func TestParseSSEStream_MultipleToolCallsOrdered(t *testing.T) {
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","function":{"name":"second","arguments":"{}"}}]},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","function":{"name":"first","arguments":"{}"}}]},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var names []string
	for _, ev := range events {
		if ev.Type == provider.EventToolCallDone {
			names = append(names, ev.ToolCall.Function.Name)
		}
	}
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("tool calls flushed as %v, want [first second] in index order", names)
	}
}

func TestParseSSEStream_MalformedChunkSkipped(t *testing.T) {
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {this is not valid json}

data: {"id":"c","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var text strings.Builder
	for _, ev := range events {
		if ev.Type == provider.EventTextDelta {
			text.WriteString(ev.Delta)
		}
	}
	if text.String() != "Hi!" {
		t.Errorf("concatenated deltas = %q, want %q (malformed chunk skipped)", text.String(), "Hi!")
	}
}

func TestParseSSEStream_UsageOnlyChunk(t *testing.T) {
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: {"id":"c","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var usage *provider.Usage
	for _, ev := range events {
		if ev.Type == provider.EventDone && ev.Usage != nil {
			usage = ev.Usage
		}
	}
	if usage == nil {
		t.Fatal("no done event carried usage")
	}
	if usage.PromptTokens != 10 || usage.CompletionTokens != 5 || usage.TotalTokens != 15 {
		t.Errorf("usage = %+v, want 10/5/15", usage)
	}
}

func TestParseSSEStream_ReasoningDelta(t *testing.T) {
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"reasoning_content":"thinking"},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{"content":"answer"},"finish_reason":null}]}

data: {"id":"c","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	if events[0].Type != provider.EventReasoningDelta || events[0].Delta != "thinking" {
		t.Errorf("events[0] = %+v, want reasoning delta %q", events[0], "thinking")
	}
	if events[1].Type != provider.EventTextDelta || events[1].Delta != "answer" {
		t.Errorf("events[1] = %+v, want text delta %q", events[1], "answer")
	}
}

func TestParseSSEStream_TruncatedStream(t *testing.T) {
	// EOF without [DONE] is how a cleanly closed but unterminated stream
	// looks; the parser must not emit an error for it.
	sseData := `data: {"id":"c","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}
`
	events := collectEvents(t, sseData)

	for _, ev := range events {
		if ev.Type == provider.EventError {
			t.Errorf("unexpected error event: %+v", ev)
		}
	}
}

func TestParseSSEStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan provider.Event, 64)
	go func() {
		defer close(ch)
		parseSSEStream(ctx, strings.NewReader("data: {\"id\":\"c\"}\n\ndata: [DONE]\n"), ch)
	}()

	count := 0
	for range ch {
		count++
	}
	if count != 0 {
		t.Errorf("got %d events after cancellation, want 0", count)
	}
}
