package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/bruecke/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to internal error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return &recoveryHandler{next: next}
	}
}

type recoveryHandler struct {
	next Handler
}

func (h *recoveryHandler) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ChatCompletionWriter) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = api.NewInternalError(fmt.Sprintf("internal server error: %v", r))
		}
	}()
	return h.next.CreateChatCompletion(ctx, req, w)
}

func (h *recoveryHandler) CreateResponse(ctx context.Context, req *api.ResponseRequest, w ResponseWriter) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = api.NewInternalError(fmt.Sprintf("internal server error: %v", r))
		}
	}()
	return h.next.CreateResponse(ctx, req, w)
}
