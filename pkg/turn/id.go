package turn

import "github.com/google/uuid"

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewRequestID returns a fresh turn request identifier. Request ids are
// never reused; a failed turn is retried by submitting a new request.
func NewRequestID() string {
	return uuid.NewString()
}

// ParseSessionID validates a caller-supplied session reference and returns
// its canonical form.
func ParseSessionID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
