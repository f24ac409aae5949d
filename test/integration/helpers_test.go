// Package integration contains end-to-end tests for the bruecke server.
//
// Tests run against a real bruecke HTTP stack backed by a mock LLM
// backend, both started in-process using net/http/httptest. The mock
// backend speaks the streaming Chat Completions protocol and reacts to
// trigger words in the user message, so every scenario is deterministic:
//
//   - "weather" makes the backend request the get_weather tool, which a
//     local executor serves, exercising the full tool loop
//   - "mystery" makes the backend request a tool nobody provides
//   - "boom" makes the backend fail with HTTP 500
//   - "count from 1 to 5" produces a known multi-chunk completion
//   - anything else produces "Hello from mock!"
package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rhuss/bruecke/pkg/engine"
	"github.com/rhuss/bruecke/pkg/observability"
	"github.com/rhuss/bruecke/pkg/provider/openaichat"
	"github.com/rhuss/bruecke/pkg/storage/memory"
	"github.com/rhuss/bruecke/pkg/tools"
	"github.com/rhuss/bruecke/pkg/transport"
	httpx "github.com/rhuss/bruecke/pkg/transport/http"
	"github.com/rhuss/bruecke/pkg/turn/thread"
)

var env *TestEnvironment

// TestEnvironment holds the in-process server stack shared by all tests.
type TestEnvironment struct {
	// Server is the bruecke API server under test.
	Server *httptest.Server

	// Backend is the mock LLM backend the server talks to.
	Backend *httptest.Server

	// Store is the session store, exposed for direct inspection.
	Store *memory.Store
}

// BaseURL returns the base URL of the server under test.
func (e *TestEnvironment) BaseURL() string {
	return e.Server.URL
}

func TestMain(m *testing.M) {
	var err error
	env, err = setupEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	env.teardown()
	os.Exit(code)
}

func setupEnvironment() (*TestEnvironment, error) {
	backend := httptest.NewServer(http.HandlerFunc(handleMockBackend))

	prov := openaichat.NewClient(backend.URL, "", 0)
	store := memory.New(100)
	router := tools.NewRouter(weatherExecutor{})

	sessions, err := thread.NewManager(prov, router, store, thread.Config{})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating session manager: %w", err)
	}

	eng, err := engine.New(sessions, engine.Config{Binding: "thread"})
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	// Same middleware stack NewServer assembles, but under httptest so
	// teardown does not wait on signal handling. Heartbeat stays off to
	// keep SSE output deterministic.
	adapter := httpx.NewAdapter(eng, eng, store, httpx.Config{MaxBodySize: 10 << 20},
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	)
	server := httptest.NewServer(observability.MetricsMiddleware(adapter.Handler()))

	return &TestEnvironment{Server: server, Backend: backend, Store: store}, nil
}

func (e *TestEnvironment) teardown() {
	e.Server.Close()
	e.Backend.Close()
}

// weatherExecutor serves the get_weather tool the mock backend asks for.
type weatherExecutor struct{}

func (weatherExecutor) Definitions() []tools.Definition {
	return []tools.Definition{{
		Name:        "get_weather",
		Description: "Returns the current weather for a location",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}},"required":["location"]}`),
	}}
}

func (weatherExecutor) CanExecute(toolName string) bool {
	return toolName == "get_weather"
}

func (weatherExecutor) Execute(_ context.Context, call tools.Call) (*tools.Result, error) {
	if call.Name != "get_weather" {
		return nil, fmt.Errorf("unexpected tool %q", call.Name)
	}
	return &tools.Result{
		CallID: call.ID,
		Output: `{"temperature":"22°C","condition":"sunny"}`,
	}, nil
}

// --- mock backend ---

type mockChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string          `json:"role"`
		Content    json.RawMessage `json:"content"`
		ToolCallID string          `json:"tool_call_id,omitempty"`
	} `json:"messages"`
	Tools []struct {
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tools,omitempty"`
	Stream bool `json:"stream"`
}

type mockUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func handleMockBackend(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req mockChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// The provider always streams; a non-streaming request means the
	// client wiring regressed.
	if !req.Stream {
		http.Error(w, "mock backend only supports streaming", http.StatusInternalServerError)
		return
	}

	userText := collectUserText(req)
	hasToolResult := false
	for _, m := range req.Messages {
		if m.Role == "tool" {
			hasToolResult = true
			break
		}
	}

	switch {
	case strings.Contains(userText, "boom"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"mock backend exploded","type":"api_error"}}`)
	case hasToolResult:
		streamText(w, req.Model, []string{"The weather is ", "sunny, 22°C."}, mockUsage{25, 8, 33})
	case strings.Contains(userText, "flaky"):
		// Dies mid-stream so clients see a connection abort after
		// content already went out.
		startStream(w)
		writeMockChunk(w, req.Model, map[string]any{"role": "assistant"}, nil, nil)
		writeMockChunk(w, req.Model, map[string]any{"content": "Partial "}, nil, nil)
		panic(http.ErrAbortHandler)
	case strings.Contains(userText, "mystery"):
		streamToolCall(w, req.Model, "call_mystery1", "mystery_tool", `{}`)
	case strings.Contains(userText, "weather"):
		streamToolCall(w, req.Model, "call_weather1", "get_weather", `{"location":"San Francisco"}`)
	case strings.Contains(userText, "count from 1 to 5"):
		streamText(w, req.Model, []string{"1", ", 2", ", 3", ", 4", ", 5"}, mockUsage{12, 9, 21})
	default:
		streamText(w, req.Model, []string{"Hello", " from", " mock", "!"}, mockUsage{10, 4, 14})
	}
}

func collectUserText(req mockChatRequest) string {
	var b strings.Builder
	for _, m := range req.Messages {
		if m.Role != "user" {
			continue
		}
		var s string
		if err := json.Unmarshal(m.Content, &s); err == nil {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func streamText(w http.ResponseWriter, model string, chunks []string, usage mockUsage) {
	startStream(w)
	writeMockChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	for _, c := range chunks {
		writeMockChunk(w, model, map[string]any{"content": c}, nil, nil)
	}
	finish := "stop"
	writeMockChunk(w, model, map[string]any{}, &finish, &usage)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flush(w)
}

// streamToolCall splits the arguments across two chunks so consumers
// have to reassemble fragments, like real backends do.
func streamToolCall(w http.ResponseWriter, model, callID, name, args string) {
	startStream(w)
	writeMockChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)

	half := len(args) / 2
	writeMockChunk(w, model, map[string]any{
		"tool_calls": []map[string]any{{
			"index": 0,
			"id":    callID,
			"type":  "function",
			"function": map[string]any{
				"name":      name,
				"arguments": args[:half],
			},
		}},
	}, nil, nil)
	writeMockChunk(w, model, map[string]any{
		"tool_calls": []map[string]any{{
			"index":    0,
			"function": map[string]any{"arguments": args[half:]},
		}},
	}, nil, nil)

	finish := "tool_calls"
	writeMockChunk(w, model, map[string]any{}, &finish, &mockUsage{20, 15, 35})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flush(w)
}

func startStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
}

func writeMockChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string, usage *mockUsage) {
	chunk := map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion.chunk",
		"created": 1700000000,
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"delta":         delta,
			"finish_reason": finishReason,
		}},
	}
	if usage != nil {
		chunk["usage"] = usage
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// --- HTTP helpers ---

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getURL(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return data
}

func decodeJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decoding JSON: %v\nbody: %s", err, data)
	}
}

// --- SSE helpers ---

// sseFrame is one server-sent event, with the optional event name and
// the data payload joined from its data lines.
type sseFrame struct {
	Event string
	Data  string
}

// readSSE consumes the response body and returns all frames, including
// the final [DONE] sentinel. Comment lines (keep-alives) are skipped.
func readSSE(t *testing.T, resp *http.Response) []sseFrame {
	t.Helper()
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected text/event-stream, got %q\nbody: %s", ct, body)
	}

	var frames []sseFrame
	var cur sseFrame
	flushFrame := func() {
		if cur.Event != "" || cur.Data != "" {
			frames = append(frames, cur)
		}
		cur = sseFrame{}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flushFrame()
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event: "):
			cur.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if cur.Data != "" {
				cur.Data += "\n"
			}
			cur.Data += strings.TrimPrefix(line, "data: ")
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading SSE stream: %v", err)
	}
	flushFrame()
	return frames
}

// dataFrames filters out the [DONE] sentinel and returns the JSON
// payloads of the remaining frames.
func dataFrames(frames []sseFrame) []sseFrame {
	var out []sseFrame
	for _, f := range frames {
		if f.Data == "[DONE]" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// countDone returns how many [DONE] sentinels the stream carried.
func countDone(frames []sseFrame) int {
	n := 0
	for _, f := range frames {
		if f.Data == "[DONE]" {
			n++
		}
	}
	return n
}
