package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// handled request. The log entry includes the operation, model, streaming
// flag, duration, request ID (from context), and whether the request
// succeeded or failed.
//
// The HTTP method and path are not visible at the handler level; for full
// HTTP-level logging (including status codes) use the adapter's middleware.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return &loggingHandler{next: next, logger: logger}
	}
}

type loggingHandler struct {
	next   Handler
	logger *slog.Logger
}

func (h *loggingHandler) CreateChatCompletion(ctx context.Context, req *api.ChatCompletionRequest, w ChatCompletionWriter) error {
	start := time.Now()
	err := h.next.CreateChatCompletion(ctx, req, w)
	h.log(ctx, "chat.completion", req.Model, req.Stream, start, err)
	return err
}

func (h *loggingHandler) CreateResponse(ctx context.Context, req *api.ResponseRequest, w ResponseWriter) error {
	start := time.Now()
	err := h.next.CreateResponse(ctx, req, w)
	h.log(ctx, "response", req.Model, req.Stream, start, err)
	return err
}

func (h *loggingHandler) log(ctx context.Context, op, model string, stream bool, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("request_id", RequestIDFromContext(ctx)),
		slog.String("operation", op),
		slog.String("model", model),
		slog.Bool("stream", stream),
		slog.Duration("duration", time.Since(start)),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		h.logger.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	} else {
		h.logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
	}
}
