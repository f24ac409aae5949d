package openaichat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// mapHTTPError converts a non-2xx backend response into an error, pulling a
// descriptive message out of the body's error envelope when one is present.
func mapHTTPError(resp *http.Response) error {
	message := extractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("backend authentication failed: %s", message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("backend rate limit exceeded: %s", message)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("backend server error: %s", message)
	default:
		return fmt.Errorf("backend rejected request: %s", message)
	}
}

// mapNetworkError converts a transport-level failure (connection refused,
// DNS, timeout) into an error with a stable prefix.
func mapNetworkError(err error) error {
	return fmt.Errorf("backend connection error: %w", err)
}

// mapStreamError converts a mid-stream read failure into an error.
func mapStreamError(err error) error {
	return fmt.Errorf("SSE stream read error: %w", err)
}

// extractErrorMessage tries to parse the body as a backend error envelope.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var envelope errorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return ""
}
