package api

import (
	"encoding/json"
	"testing"
)

func TestInputValueForms(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantText  bool
		wantItems int
	}{
		{"plain string", `"summarize this"`, true, 0},
		{"item list", `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`, false, 2},
		{"block list", `[{"type":"input_text","text":"hi"}]`, false, 1},
		{"empty array", `[]`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v InputValue
			if err := json.Unmarshal([]byte(tt.raw), &v); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if v.IsText != tt.wantText {
				t.Errorf("IsText = %v, want %v", v.IsText, tt.wantText)
			}
			if len(v.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(v.Items), tt.wantItems)
			}
		})
	}
}

func TestInputValueRejectsObject(t *testing.T) {
	var v InputValue
	if err := json.Unmarshal([]byte(`{"text":"hi"}`), &v); err == nil {
		t.Error("Unmarshal(object) succeeded, want error")
	}
}

func TestInputItemBlockText(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"text field", `{"type":"input_text","text":"hi"}`, "hi", true},
		{"string content", `{"content":"hi"}`, "hi", true},
		{"array content is not a block", `{"content":[{"text":"hi"}]}`, "", false},
		{"non-string text", `{"text":[1,2]}`, "", false},
		{"empty object", `{}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var it InputItem
			if err := json.Unmarshal([]byte(tt.raw), &it); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			got, ok := it.BlockText()
			if ok != tt.wantOK {
				t.Fatalf("BlockText() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("BlockText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutputItemMarshalMessage(t *testing.T) {
	item := MessageItem(NewOutputMessage("Hello"))
	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["type"] != "message" {
		t.Errorf("type = %v, want %q", m["type"], "message")
	}
	if m["role"] != "assistant" {
		t.Errorf("role = %v, want %q", m["role"], "assistant")
	}
	content := m["content"].([]any)
	part := content[0].(map[string]any)
	if part["type"] != "output_text" || part["text"] != "Hello" {
		t.Errorf("content[0] = %v, want output_text %q", part, "Hello")
	}
}

func TestOutputItemRawPassthrough(t *testing.T) {
	raw := json.RawMessage(`{"type":"function_call","call_id":"call_1","name":"lookup","arguments":"{}"}`)
	data, err := json.Marshal(RawItem(raw))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("Marshal = %s, want verbatim %s", data, raw)
	}
}

func TestOutputItemUnmarshalKeepsRaw(t *testing.T) {
	raw := `{"type":"custom_tool_call","call_id":"call_2","name":"run","input":"ls"}`
	var it OutputItem
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if it.Message != nil {
		t.Errorf("Message = %+v, want nil for non-message item", it.Message)
	}
	if string(it.Raw) != raw {
		t.Errorf("Raw = %s, want %s", it.Raw, raw)
	}
}

func TestResponseOutputNeverNull(t *testing.T) {
	resp := Response{
		ID:        NewResponseID(),
		Object:    ObjectResponse,
		CreatedAt: 1700000000,
		Status:    ResponseStatusCompleted,
		Model:     "gpt-4o-mini",
		Output:    []OutputItem{},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := m["output"].([]any); !ok {
		t.Errorf("output = %v, want JSON array", m["output"])
	}
}
