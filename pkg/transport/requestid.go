package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/bruecke/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming request context already carries a request ID
// (set by the HTTP adapter from the X-Request-ID header), that value is
// used. Otherwise, a new unique ID is generated.
//
// The request ID is stored in the context and can be retrieved with
// RequestIDFromContext.
func RequestID() Middleware {
	return func(next Handler) Handler {
		return &requestIDHandler{next: next}
	}
}

type requestIDHandler struct {
	next Handler
}

func (h *requestIDHandler) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ChatCompletionWriter) error {
	return h.next.CreateChatCompletion(ensureRequestID(ctx), req, w)
}

func (h *requestIDHandler) CreateResponse(ctx context.Context, req *api.ResponseRequest, w ResponseWriter) error {
	return h.next.CreateResponse(ensureRequestID(ctx), req, w)
}

func ensureRequestID(ctx context.Context) context.Context {
	if RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return ContextWithRequestID(ctx, generateRequestID())
}

// generateRequestID creates a new unique request ID as a hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
