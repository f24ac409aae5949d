package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/debug"
	"github.com/rhuss/bruecke/pkg/storage"
	"github.com/rhuss/bruecke/pkg/transport"
)

// Adapter serves both API dialects over HTTP. It routes requests to the
// engine behind the transport.Handler contract and serializes responses,
// aggregate or streamed, onto the wire.
type Adapter struct {
	handler transport.Handler
	catalog transport.ModelCatalog       // nil serves an empty model list
	store   storage.ConversationStore    // nil disables conversation retrieval
	mux     *http.ServeMux
	config  Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	// Heartbeat is the interval between SSE keep-alive comments on open
	// streams. Zero disables heartbeats.
	Heartbeat time.Duration
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Heartbeat:   15 * time.Second,
	}
}

// NewAdapter creates an HTTP adapter around the given Handler. The catalog
// and store are optional: without a catalog GET /v1/models serves an empty
// list, and without a store GET /v1/conversations/{id} reports the
// operation as unavailable. Middleware is applied to the Handler in the
// given order.
func NewAdapter(handler transport.Handler, catalog transport.ModelCatalog, store storage.ConversationStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		handler = transport.Chain(middlewares...)(handler)
	}

	a := &Adapter{
		handler: handler,
		catalog: catalog,
		store:   store,
		mux:     http.NewServeMux(),
		config:  cfg,
	}

	a.mux.HandleFunc("POST /v1/chat/completions", a.handleChatCompletion)
	a.mux.HandleFunc("POST /v1/responses", a.handleCreateResponse)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /v1/conversations/{id}", a.handleGetConversation)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	a.mux.Handle("GET /metrics", promhttp.Handler())

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. If present in the request, it is forwarded to
// the response. After the handler runs, it checks the context for a
// request ID (set by the transport-level RequestID middleware) and adds
// it to the response headers if not already set.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If client sent X-Request-ID, propagate it into context.
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx := transport.ContextWithRequestID(r.Context(), id)
			r = r.WithContext(ctx)
		}
		// Use a response writer wrapper to capture and set the request ID
		// header before the first write.
		rw := &requestIDResponseWriter{ResponseWriter: w, r: r}
		next.ServeHTTP(rw, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// handleChatCompletion handles POST /v1/chat/completions.
func (a *Adapter) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	var req api.ChatCompletionRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	debug.Log("transport", "chat completion request",
		"model", req.Model,
		"stream", req.Stream,
		"messages", len(req.Messages),
		"conversation_id", req.ConversationID,
	)

	rw := newChatWriter(w, a.config.Heartbeat)
	defer rw.finish()

	if err := a.handler.CreateChatCompletion(r.Context(), &req, rw); err != nil {
		// WriteStreamError picks the right shape: an in-band error frame
		// once streaming has begun, a plain JSON envelope before.
		rw.WriteStreamError(r.Context(), handlerAPIError(err))
	}
}

// handleCreateResponse handles POST /v1/responses.
func (a *Adapter) handleCreateResponse(w http.ResponseWriter, r *http.Request) {
	var req api.ResponseRequest
	if !a.decodeRequest(w, r, &req) {
		return
	}

	debug.Log("transport", "responses request",
		"model", req.Model,
		"stream", req.Stream,
		"conversation_id", req.ConversationID,
	)

	rw := newResponseWriter(w, a.config.Heartbeat)
	defer rw.finish()

	if err := a.handler.CreateResponse(r.Context(), &req, rw); err != nil {
		a.writeResponseError(w, rw, handlerAPIError(err))
	}
}

// decodeRequest validates the Content-Type, caps the body size, and decodes
// the JSON body into v. On failure it writes the error response and returns
// false.
func (a *Adapter) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError(fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	list := api.ModelList{Object: "list", Data: []api.Model{}}
	if a.catalog != nil {
		list = a.catalog.Models()
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetConversation handles GET /v1/conversations/{id}.
func (a *Adapter) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("conversation retrieval is not available (no store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	records, err := a.store.ListTurns(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("conversation "+id+" not found"))
		} else {
			transport.WriteAPIError(w, api.NewInternalError(fmt.Sprintf("listing conversation turns: %v", err)))
		}
		return
	}

	conv := api.Conversation{
		ID:     id,
		Object: api.ObjectConversation,
		Turns:  make([]api.ConversationTurn, 0, len(records)),
	}
	for _, rec := range records {
		conv.Turns = append(conv.Turns, api.ConversationTurn{
			RequestID: rec.RequestID,
			Model:     rec.Model,
			Input:     rec.Input,
			Output:    rec.Output,
			Items:     rec.Items,
			Usage:     rec.Usage,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, conv)
}

// handleHealthz handles GET /healthz. It reports liveness only.
func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz handles GET /readyz. With a store configured, readiness
// includes the store health check.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		if err := a.store.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeResponseError reports a handler error on the responses wire. Once
// streaming has begun the failure goes out in-band as response.failed;
// before that a plain JSON envelope serves.
func (a *Adapter) writeResponseError(w http.ResponseWriter, rw *responseWriter, apiErr *api.APIError) {
	if rw.startedStreaming() {
		rw.WriteEvent(context.Background(), api.StreamEvent{
			Type: api.EventResponseFailed,
			Response: &api.Response{
				Object: api.ObjectResponse,
				Status: api.ResponseStatusFailed,
				Output: []api.OutputItem{},
				Error:  apiErr,
			},
			Error: apiErr,
		})
		return
	}
	transport.WriteAPIError(w, apiErr)
}

// handlerAPIError converts any handler error into an APIError.
func handlerAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		apiErr = api.NewInternalError(err.Error())
	}
	return apiErr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("{}")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
