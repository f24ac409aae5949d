package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

// responseBody mirrors the wire shape of an aggregate response. Output
// items are kept raw so tests can probe their type discriminator.
type responseBody struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Status    string            `json:"status"`
	Model     string            `json:"model"`
	Output    []json.RawMessage `json:"output"`
	Error     *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	ConversationID string `json:"conversation_id"`
}

type outputMessage struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type functionCallItem struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// itemType reads the type discriminator of a raw output item.
func itemType(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var probe struct {
		Type string `json:"type"`
	}
	decodeJSON(t, raw, &probe)
	return probe.Type
}

// messageText extracts the joined output_text of a message item.
func messageText(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var msg outputMessage
	decodeJSON(t, raw, &msg)
	var b strings.Builder
	for _, part := range msg.Content {
		if part.Type == "output_text" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func TestResponses_Basic(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model": "gpt-4o",
		"input": "Say hello",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var rb responseBody
	decodeJSON(t, body, &rb)

	if rb.Object != "response" {
		t.Errorf("expected object response, got %q", rb.Object)
	}
	if !strings.HasPrefix(rb.ID, "resp_") {
		t.Errorf("expected resp_ id prefix, got %q", rb.ID)
	}
	if rb.Status != "completed" {
		t.Errorf("expected status completed, got %q", rb.Status)
	}
	if rb.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", rb.Model)
	}
	if len(rb.Output) != 1 {
		t.Fatalf("expected 1 output item, got %d", len(rb.Output))
	}
	if got := itemType(t, rb.Output[0]); got != "message" {
		t.Fatalf("expected message item, got %q", got)
	}
	var msg outputMessage
	decodeJSON(t, rb.Output[0], &msg)
	if msg.Role != "assistant" {
		t.Errorf("expected assistant role, got %q", msg.Role)
	}
	if !strings.HasPrefix(msg.ID, "item_") {
		t.Errorf("expected item_ id prefix, got %q", msg.ID)
	}
	if got := messageText(t, rb.Output[0]); got != "Hello from mock!" {
		t.Errorf("unexpected output text: %q", got)
	}
	if rb.Usage == nil {
		t.Fatal("expected usage to be present")
	}
	if rb.Usage.TotalTokens != 0 {
		t.Errorf("expected zero usage, got %d total tokens", rb.Usage.TotalTokens)
	}
	if rb.ConversationID == "" {
		t.Error("expected a conversation_id")
	}
}

func TestResponses_Instructions(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model":        "gpt-4o",
		"instructions": "You are terse.",
		"input":        "Say hello",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var rb responseBody
	decodeJSON(t, body, &rb)
	if got := messageText(t, rb.Output[len(rb.Output)-1]); got != "Hello from mock!" {
		t.Errorf("unexpected output text: %q", got)
	}
}

func TestResponses_ItemInput(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model": "gpt-4o",
		"input": []map[string]any{
			{"role": "system", "content": "You are terse."},
			{"role": "user", "content": "Say hello"},
		},
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var rb responseBody
	decodeJSON(t, body, &rb)
	if rb.Status != "completed" {
		t.Errorf("expected status completed, got %q", rb.Status)
	}
	if got := messageText(t, rb.Output[len(rb.Output)-1]); got != "Hello from mock!" {
		t.Errorf("unexpected output text: %q", got)
	}
}

func TestResponses_ConversationContinuity(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model": "gpt-4o",
		"input": "First turn",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first turn failed: %d: %s", resp.StatusCode, body)
	}
	var first responseBody
	decodeJSON(t, body, &first)
	if first.ConversationID == "" {
		t.Fatal("first turn returned no conversation_id")
	}

	resp = postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model":           "gpt-4o",
		"conversation_id": first.ConversationID,
		"input":           "Second turn",
	})
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second turn failed: %d: %s", resp.StatusCode, body)
	}
	var second responseBody
	decodeJSON(t, body, &second)
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation_id changed: %q vs %q", second.ConversationID, first.ConversationID)
	}
}

func TestResponses_ToolLoop(t *testing.T) {
	resp := postJSON(t, env.BaseURL()+"/v1/responses", map[string]any{
		"model": "gpt-4o",
		"input": "What is the weather in San Francisco?",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var rb responseBody
	decodeJSON(t, body, &rb)
	if rb.Status != "completed" {
		t.Errorf("expected status completed, got %q", rb.Status)
	}

	// Items arrive in turn order: the function call first, then the
	// assembled final message.
	if len(rb.Output) != 2 {
		t.Fatalf("expected 2 output items, got %d", len(rb.Output))
	}
	if got := itemType(t, rb.Output[0]); got != "function_call" {
		t.Fatalf("expected function_call item first, got %q", got)
	}
	var fc functionCallItem
	decodeJSON(t, rb.Output[0], &fc)
	if fc.CallID != "call_weather1" {
		t.Errorf("expected call_weather1, got %q", fc.CallID)
	}
	if fc.Name != "get_weather" {
		t.Errorf("expected get_weather, got %q", fc.Name)
	}
	if !strings.Contains(fc.Arguments, "San Francisco") {
		t.Errorf("arguments not reassembled: %q", fc.Arguments)
	}

	if got := itemType(t, rb.Output[1]); got != "message" {
		t.Fatalf("expected message item second, got %q", got)
	}
	if got := messageText(t, rb.Output[1]); got != "The weather is sunny, 22°C." {
		t.Errorf("unexpected output text: %q", got)
	}
}
