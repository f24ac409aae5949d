package main

import (
	"encoding/json"
	"fmt"

	"github.com/rhuss/bruecke/pkg/api"
)

func main() {
	fmt.Println("=== bruecke wire format demo ===")
	fmt.Println()

	// 1. Build a chat completion request with both content forms
	req := api.ChatCompletionRequest{
		Model: "meta-llama/Llama-3-8B",
		Messages: []api.ChatMessage{
			{Role: "system", Content: api.TextContent("You are terse.")},
			{Role: "user", Content: api.TextContent("What is the capital of France?")},
		},
		Stream: true,
	}

	data, _ := json.MarshalIndent(req, "", "  ")
	fmt.Printf("[1] Chat request JSON:\n%s\n", data)

	// 2. Content decodes from either wire form
	fmt.Println("\n[2] Polymorphic content:")
	for _, raw := range []string{
		`"plain string"`,
		`[{"type":"text","text":"part one"},{"type":"text","content":"part two"}]`,
	} {
		var c api.MessageContent
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			fmt.Printf("    %s: FAILED (%v)\n", raw, err)
			continue
		}
		if c.IsText {
			fmt.Printf("    string form: %q\n", c.Text)
		} else {
			for _, p := range c.Parts {
				text, _ := p.TextValue()
				fmt.Printf("    part: %q\n", text)
			}
		}
	}

	// 3. Aggregate response with a surfaced tool call
	resp := api.ChatCompletionResponse{
		ID:      api.NewCompletionID(),
		Object:  api.ObjectChatCompletion,
		Created: 1700000000,
		Model:   "meta-llama/Llama-3-8B",
		Choices: []api.ChatChoice{
			{
				Index: 0,
				Message: api.AssistantMessage{
					Role: "assistant",
					ToolCalls: []api.ToolCall{
						{
							ID:   "call_abc123",
							Type: "function",
							Function: api.ToolCallFunction{
								Name:      "get_weather",
								Arguments: `{"location":"Paris"}`,
							},
						},
					},
				},
				FinishReason: api.FinishReasonToolCalls,
			},
		},
	}
	data, _ = json.MarshalIndent(resp, "", "  ")
	fmt.Printf("\n[3] Aggregate chat response:\n%s\n", data)

	// 4. Streaming chunk sample
	finish := api.FinishReasonStop
	chunks := []api.ChatCompletionChunk{
		{
			ID:      "chatcmpl-stream1",
			Object:  api.ObjectChatCompletionChunk,
			Model:   resp.Model,
			Choices: []api.ChunkChoice{{Delta: api.ChunkDelta{Role: "assistant", Content: "Paris"}}},
		},
		{
			ID:      "chatcmpl-stream1",
			Object:  api.ObjectChatCompletionChunk,
			Model:   resp.Model,
			Choices: []api.ChunkChoice{{Delta: api.ChunkDelta{}, FinishReason: &finish}},
		},
	}
	fmt.Println("\n[4] Stream chunks (shared id, finish_reason only on the last):")
	for _, chunk := range chunks {
		line, _ := json.Marshal(chunk)
		fmt.Printf("    data: %s\n", line)
	}

	// 5. Responses dialect
	rreq := api.ResponseRequest{
		Model:        "meta-llama/Llama-3-8B",
		Input:        api.TextInput("What is the capital of France?"),
		Instructions: "Answer in one word.",
	}
	data, _ = json.MarshalIndent(rreq, "", "  ")
	fmt.Printf("\n[5] Responses request:\n%s\n", data)

	rresp := api.Response{
		ID:        api.NewResponseID(),
		Object:    api.ObjectResponse,
		CreatedAt: 1700000000,
		Status:    api.ResponseStatusCompleted,
		Model:     "meta-llama/Llama-3-8B",
		Output:    []api.OutputItem{api.MessageItem(api.NewOutputMessage("Paris."))},
		Usage:     &api.Usage{},
	}
	data, _ = json.MarshalIndent(rresp, "", "  ")
	fmt.Printf("\n    Responses response:\n%s\n", data)

	events := []api.StreamEvent{
		{Type: api.EventResponseCreated, SequenceNumber: 0, Response: &api.Response{ID: rresp.ID, Object: api.ObjectResponse, Status: api.ResponseStatusInProgress, Model: rresp.Model, Output: []api.OutputItem{}}},
		{Type: api.EventOutputTextDelta, SequenceNumber: 1, Delta: "Paris."},
		{Type: api.EventResponseCompleted, SequenceNumber: 2, Response: &rresp},
	}
	fmt.Println("\n    Stream events in emission order:")
	for _, ev := range events {
		fmt.Printf("    %d: %s\n", ev.SequenceNumber, ev.Type)
	}

	// 6. Error envelopes
	fmt.Println("\n[6] Error envelopes:")
	for _, apiErr := range []*api.APIError{
		api.NewInvalidRequestError("messages must not be empty"),
		api.NewNotFoundError("conversation conv_123 not found"),
		api.NewInternalError("session backend unavailable"),
	} {
		env, _ := json.Marshal(api.ErrorResponse{Error: apiErr})
		fmt.Printf("    %s\n", env)
	}

	// 7. Identifier generation
	fmt.Println("\n[7] Identifiers:")
	fmt.Printf("    completion: %s\n", api.NewCompletionID())
	respID := api.NewResponseID()
	fmt.Printf("    response:   %s (valid=%v)\n", respID, api.ValidateResponseID(respID))
	fmt.Printf("    item:       %s\n", api.NewItemID())

	fmt.Println("\n=== demo complete ===")
}
