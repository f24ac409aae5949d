package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ObjectResponse is the object discriminator of a responses-dialect response.
const ObjectResponse = "response"

// ResponseStatus is the lifecycle state reported on a response object.
type ResponseStatus string

const (
	ResponseStatusInProgress ResponseStatus = "in_progress"
	ResponseStatusCompleted  ResponseStatus = "completed"
	ResponseStatusFailed     ResponseStatus = "failed"
)

// ResponseRequest is the request body for POST /v1/responses.
type ResponseRequest struct {
	Model          string     `json:"model"`
	Input          InputValue `json:"input"`
	Instructions   string     `json:"instructions,omitempty"`
	Stream         bool       `json:"stream,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
}

// InputValue is the polymorphic input field of a responses request: a plain
// string, a list of role-tagged input items, or a bare list of content
// parts. IsText reports string form; array form lands in Items either way,
// with bare parts distinguished by their missing role.
type InputValue struct {
	Text   string
	Items  []InputItem
	IsText bool
}

// TextInput returns an InputValue holding a plain string.
func TextInput(s string) InputValue {
	return InputValue{Text: s, IsText: true}
}

// UnmarshalJSON accepts either form; anything else is rejected.
func (v *InputValue) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = InputValue{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Text = s
		v.IsText = true
		v.Items = nil
		return nil
	}

	var items []InputItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("input must be a string or an array: %w", err)
	}
	v.Items = items
	v.Text = ""
	v.IsText = false
	return nil
}

// MarshalJSON emits the form the input was parsed from.
func (v InputValue) MarshalJSON() ([]byte, error) {
	if v.IsText {
		return json.Marshal(v.Text)
	}
	if v.Items != nil {
		return json.Marshal(v.Items)
	}
	return []byte("null"), nil
}

// InputItem is one element of array-form input. Role-tagged items carry
// nested message content; elements without a role are treated as bare
// content parts and resolved through BlockText.
type InputItem struct {
	Role    string          `json:"role,omitempty"`
	Type    string          `json:"type,omitempty"`
	Content MessageContent  `json:"content,omitempty"`
	Text    json.RawMessage `json:"text,omitempty"`
}

// BlockText resolves the element's text payload when it stands alone as a
// content part: the "text" field when it is a JSON string, otherwise
// string-form "content".
func (it InputItem) BlockText() (string, bool) {
	if it.Text != nil {
		var s string
		if err := json.Unmarshal(it.Text, &s); err != nil {
			return "", false
		}
		return s, true
	}
	if it.Content.IsText {
		return it.Content.Text, true
	}
	return "", false
}

// Response is the aggregate responses-dialect body, also carried by the
// response.created / response.completed / response.failed stream events.
type Response struct {
	ID             string         `json:"id"`
	Object         string         `json:"object"`
	CreatedAt      int64          `json:"created_at"`
	Status         ResponseStatus `json:"status"`
	Model          string         `json:"model"`
	Output         []OutputItem   `json:"output"`
	Error          *APIError      `json:"error,omitempty"`
	Usage          *Usage         `json:"usage,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// Usage reports token accounting in the responses dialect. The adapter has
// no token visibility and reports zeros.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OutputItem is one element of a response's output array: either a message
// the adapter assembled from turn text, or an engine item passed through
// verbatim.
type OutputItem struct {
	Message *OutputMessage
	Raw     json.RawMessage
}

// MessageItem wraps an assembled output message as an OutputItem.
func MessageItem(m *OutputMessage) OutputItem {
	return OutputItem{Message: m}
}

// RawItem wraps engine-provided item JSON as a pass-through OutputItem.
func RawItem(data json.RawMessage) OutputItem {
	return OutputItem{Raw: data}
}

// MarshalJSON emits the assembled message when present, otherwise the raw
// pass-through bytes.
func (it OutputItem) MarshalJSON() ([]byte, error) {
	if it.Message != nil {
		return json.Marshal(it.Message)
	}
	if len(it.Raw) > 0 {
		return it.Raw, nil
	}
	return []byte("{}"), nil
}

// UnmarshalJSON keeps the raw bytes and additionally decodes message items
// into their typed form.
func (it *OutputItem) UnmarshalJSON(data []byte) error {
	it.Raw = append(it.Raw[:0], data...)
	it.Message = nil

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Type == "message" {
		var m OutputMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		it.Message = &m
	}
	return nil
}

// OutputMessage is the message item assembled from a turn's final text.
type OutputMessage struct {
	ID      string              `json:"id"`
	Type    string              `json:"type"`
	Role    string              `json:"role"`
	Content []OutputContentPart `json:"content"`
}

// OutputContentPart is one content element of an output message.
type OutputContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewOutputMessage assembles an assistant message item around final text.
func NewOutputMessage(text string) *OutputMessage {
	return &OutputMessage{
		ID:   NewItemID(),
		Type: "message",
		Role: "assistant",
		Content: []OutputContentPart{
			{Type: "output_text", Text: text},
		},
	}
}
