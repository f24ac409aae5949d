package engine

import (
	"strings"

	"github.com/rhuss/bruecke/pkg/api"
)

// flattenContent resolves message content to plain text: string-form
// content verbatim, array-form content as the parts' text fields joined by
// newlines. Parts without a resolvable text payload are skipped.
func flattenContent(c api.MessageContent) string {
	if c.IsText {
		return c.Text
	}
	var parts []string
	for _, p := range c.Parts {
		if s, ok := p.TextValue(); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// mergeChatMessages folds a chat message list into the single instruction
// submitted to the engine. Each surviving message contributes one
// "role: content" fragment; messages whose content is blank are dropped.
// A request with no surviving fragment is invalid.
func mergeChatMessages(msgs []api.ChatMessage) (string, *api.APIError) {
	var parts []string
	for _, m := range msgs {
		if m.Role == "" {
			return "", api.NewInvalidRequestError("message role is required")
		}
		content := flattenContent(m.Content)
		if strings.TrimSpace(content) == "" {
			continue
		}
		parts = append(parts, m.Role+": "+content)
	}
	if len(parts) == 0 {
		return "", api.NewInvalidRequestError("no user content found")
	}
	return strings.Join(parts, "\n"), nil
}

// mergeResponseInput folds a responses-dialect request into the single
// instruction submitted to the engine. Non-blank instructions contribute a
// leading "system:" fragment and count as content on their own. String
// input and bare content-part lists are treated as one user message; a list
// where every element carries a role is merged like chat messages.
func mergeResponseInput(req *api.ResponseRequest) (string, *api.APIError) {
	var parts []string
	if strings.TrimSpace(req.Instructions) != "" {
		parts = append(parts, "system: "+req.Instructions)
	}

	switch {
	case req.Input.IsText:
		if strings.TrimSpace(req.Input.Text) != "" {
			parts = append(parts, "user: "+req.Input.Text)
		}
	case allRoleTagged(req.Input.Items):
		for _, it := range req.Input.Items {
			content := flattenContent(it.Content)
			if strings.TrimSpace(content) == "" {
				continue
			}
			parts = append(parts, it.Role+": "+content)
		}
	default:
		var blocks []string
		for _, it := range req.Input.Items {
			if s, ok := it.BlockText(); ok {
				blocks = append(blocks, s)
			}
		}
		text := strings.Join(blocks, "\n")
		if strings.TrimSpace(text) != "" {
			parts = append(parts, "user: "+text)
		}
	}

	if len(parts) == 0 {
		return "", api.NewInvalidRequestError("no user content found")
	}
	return strings.Join(parts, "\n"), nil
}

func allRoleTagged(items []api.InputItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if it.Role == "" {
			return false
		}
	}
	return true
}
