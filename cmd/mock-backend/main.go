// Command mock-backend runs a deterministic Chat Completions server for
// demos and integration testing. Responses are derived from the request
// content, so every scenario is reproducible without a real model:
//
//   - tools declared, no tool result yet: one call to the first declared
//     tool, streamed as split argument fragments
//   - a tool-role message present: a final answer quoting the tool output
//   - system message mentioning "pirate": a pirate greeting
//   - user message containing "count from 1 to 5": the counting answer
//   - user message containing "boom": HTTP 500 with an error envelope
//   - anything else: a fixed greeting
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolDef     `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
}

// chatMessage keeps Content untyped so both plain strings and multimodal
// part arrays decode.
type chatMessage struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type toolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	if strings.Contains(strings.ToLower(lastUserMessage(&req)), "boom") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"mock backend exploded","type":"api_error"}}`))
		return
	}

	if req.Stream {
		handleStreaming(w, &req)
		return
	}

	resp := classifyAndRespond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-model"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func classifyAndRespond(req *chatRequest) chatResponse {
	if name, ok := pendingToolCall(req); ok {
		return toolCallResponse(name, toolCallArguments(req))
	}
	return makeTextResponse(answerText(req))
}

// answerText picks the deterministic final answer for a request that does
// not call a tool.
func answerText(req *chatRequest) string {
	if out, ok := lastToolResult(req); ok {
		return "The tool returned: " + out
	}
	if systemMentionsPirate(req) {
		return "Ahoy there, matey! Welcome aboard!"
	}
	if strings.Contains(strings.ToLower(lastUserMessage(req)), "count from 1 to 5") {
		return "1, 2, 3, 4, 5"
	}
	return "Hello from the mock backend."
}

// pendingToolCall reports whether the model should call a tool: tools are
// declared and no result has come back yet. Without the second condition
// the caller's tool loop would never terminate. A declared "lookup" tool
// is preferred over the first one, since its input matches the arguments
// generated here.
func pendingToolCall(req *chatRequest) (string, bool) {
	if len(req.Tools) == 0 {
		return "", false
	}
	if _, ok := lastToolResult(req); ok {
		return "", false
	}
	for _, t := range req.Tools {
		if t.Function.Name == "lookup" {
			return "lookup", true
		}
	}
	return req.Tools[0].Function.Name, true
}

func toolCallArguments(req *chatRequest) string {
	args, _ := json.Marshal(map[string]string{"q": lastUserMessage(req)})
	return string(args)
}

func toolCallResponse(name, arguments string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-tool",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: nil,
					ToolCalls: []toolCall{
						{
							ID:       "call_mock_1",
							Type:     "function",
							Function: funcCall{Name: name, Arguments: arguments},
						},
					},
				},
				FinishReason: "tool_calls",
			},
		},
		Usage: chatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
	}
}

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMsg{Role: "assistant", Content: &text},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Streaming ---

func handleStreaming(w http.ResponseWriter, req *chatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	writeChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	flusher.Flush()

	if name, ok := pendingToolCall(req); ok {
		streamToolCall(w, flusher, model, name, toolCallArguments(req))
		return
	}

	text := answerText(req)
	tokens := tokenize(text)
	for _, token := range tokens {
		writeChunk(w, model, map[string]any{"content": token}, nil, nil)
		flusher.Flush()
	}

	finish := "stop"
	writeChunk(w, model, map[string]any{}, &finish, &chatUsage{
		PromptTokens:     10,
		CompletionTokens: len(tokens),
		TotalTokens:      10 + len(tokens),
	})
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// streamToolCall emits the call as two argument fragments so consumers
// have to assemble them.
func streamToolCall(w http.ResponseWriter, flusher http.Flusher, model, name, arguments string) {
	half := len(arguments) / 2

	writeChunk(w, model, map[string]any{
		"tool_calls": []any{map[string]any{
			"index":    0,
			"id":       "call_mock_1",
			"type":     "function",
			"function": map[string]any{"name": name, "arguments": arguments[:half]},
		}},
	}, nil, nil)
	flusher.Flush()

	writeChunk(w, model, map[string]any{
		"tool_calls": []any{map[string]any{
			"index":    0,
			"function": map[string]any{"arguments": arguments[half:]},
		}},
	}, nil, nil)
	flusher.Flush()

	finish := "tool_calls"
	writeChunk(w, model, map[string]any{}, &finish, &chatUsage{
		PromptTokens:     20,
		CompletionTokens: 15,
		TotalTokens:      35,
	})
	flusher.Flush()

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string, usage *chatUsage) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			},
		},
	}
	if usage != nil {
		chunk["usage"] = usage
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// tokenize splits text into word-sized stream tokens, keeping the
// whitespace so concatenation reproduces the input.
func tokenize(text string) []string {
	var tokens []string
	start := 0
	for i, r := range text {
		if r == ' ' {
			tokens = append(tokens, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "bruecke-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return messageText(req.Messages[i])
		}
	}
	return ""
}

// lastToolResult returns the content of the most recent tool-role message.
func lastToolResult(req *chatRequest) (string, bool) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "tool" {
			return messageText(req.Messages[i]), true
		}
	}
	return "", false
}

func systemMentionsPirate(req *chatRequest) bool {
	for _, msg := range req.Messages {
		if msg.Role == "system" && strings.Contains(strings.ToLower(messageText(msg)), "pirate") {
			return true
		}
	}
	return false
}

// messageText extracts the text of a message, flattening multimodal part
// arrays to their text parts.
func messageText(msg chatMessage) string {
	switch v := msg.Content.(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["type"].(string); ok && (t == "text" || t == "input_text") {
				if text, ok := m["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return b.String()
	}
	return ""
}
