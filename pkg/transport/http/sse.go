package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rhuss/bruecke/pkg/api"
	"github.com/rhuss/bruecke/pkg/observability"
	"github.com/rhuss/bruecke/pkg/transport"
)

// writerState tracks the state of an SSE writer.
type writerState int

const (
	writerIdle      writerState = iota // Initial state, no writes yet
	writerStreaming                    // At least one SSE frame written
	writerCompleted                    // Terminal frame sent or aggregate body written
)

// terminalEvents are the responses-dialect event types that end a stream.
var terminalEvents = map[api.StreamEventType]bool{
	api.EventResponseCompleted: true,
	api.EventResponseFailed:    true,
}

// sseStream owns the mechanics shared by both dialect writers: SSE headers,
// state tracking, the [DONE] sentinel, heartbeats, and the streaming
// connections gauge.
type sseStream struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	heartbeat time.Duration

	mu    sync.Mutex
	state writerState
	stop  chan struct{}
}

// beginStreaming transitions the writer into streaming mode. Callers hold mu.
func (s *sseStream) beginStreaming() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.state = writerStreaming
	observability.StreamingConnections.Inc()
	if s.heartbeat > 0 {
		s.stop = make(chan struct{})
		go s.heartbeatLoop(s.stop)
	}
}

// endStreaming tears streaming state down and marks the writer completed.
// Callers hold mu.
func (s *sseStream) endStreaming() {
	streaming := s.state == writerStreaming
	s.state = writerCompleted
	if !streaming {
		return
	}
	observability.StreamingConnections.Dec()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// writeDone emits the [DONE] sentinel and completes the stream. Every
// stream carries it exactly once. Callers hold mu.
func (s *sseStream) writeDone() error {
	defer s.endStreaming()
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write [DONE]: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush [DONE]: %w", err)
	}
	return nil
}

// heartbeatLoop emits SSE comment lines while the stream is open so
// intermediaries do not time out an idle connection.
func (s *sseStream) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			if s.state == writerStreaming {
				fmt.Fprint(s.w, ": keep-alive\n\n")
				s.rc.Flush()
			}
			s.mu.Unlock()
		case <-stop:
			return
		}
	}
}

// finish releases streaming resources when the handler returns without a
// terminal frame (client disconnect, recovered panic). It is a no-op on a
// writer that completed normally or never streamed.
func (s *sseStream) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == writerStreaming {
		s.endStreaming()
	}
}

// Flush ensures buffered data is sent to the client.
func (s *sseStream) Flush() error {
	return s.rc.Flush()
}

// startedStreaming reports whether at least one SSE frame went out.
func (s *sseStream) startedStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != writerIdle && s.w.Header().Get("Content-Type") == "text/event-stream"
}

// chatWriter implements transport.ChatCompletionWriter for HTTP. Aggregate
// bodies go out as one JSON document; chunks go out as data-only SSE frames
// with [DONE] after the terminal chunk, matching the chat streaming wire
// format.
type chatWriter struct {
	sseStream
}

var _ transport.ChatCompletionWriter = (*chatWriter)(nil)

func newChatWriter(w http.ResponseWriter, heartbeat time.Duration) *chatWriter {
	return &chatWriter{sseStream: sseStream{
		w:         w,
		rc:        http.NewResponseController(w),
		heartbeat: heartbeat,
	}}
}

// WriteCompletion sends a complete non-streaming JSON body. This is
// mutually exclusive with WriteChunk.
func (s *chatWriter) WriteCompletion(ctx context.Context, resp *api.ChatCompletionResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write completion: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write completion: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte("{}")
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write completion: %w", err)
	}
	return nil
}

// WriteChunk sends one data-only SSE frame. A chunk carrying a finish
// reason is terminal: [DONE] follows it and the stream completes.
func (s *chatWriter) WriteChunk(ctx context.Context, chunk *api.ChatCompletionChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write chunk: writer is completed")
	}
	if s.state == writerIdle {
		s.beginStreaming()
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if terminalChunk(chunk) {
		return s.writeDone()
	}
	return nil
}

// WriteStreamError terminates the stream in-band with an error frame
// followed by [DONE]. On a writer that has not streamed anything it
// degrades to a plain HTTP error response.
func (s *chatWriter) WriteStreamError(ctx context.Context, apiErr *api.APIError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writerCompleted:
		return errors.New("cannot write stream error: writer is completed")
	case writerIdle:
		s.state = writerCompleted
		transport.WriteAPIError(s.w, apiErr)
		return nil
	}

	data, err := json.Marshal(api.ErrorResponse{Error: apiErr})
	if err != nil {
		return fmt.Errorf("failed to marshal stream error: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write stream error: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return s.writeDone()
}

// terminalChunk reports whether the chunk carries a finish reason.
func terminalChunk(chunk *api.ChatCompletionChunk) bool {
	for _, c := range chunk.Choices {
		if c.FinishReason != nil {
			return true
		}
	}
	return false
}

// responseWriter implements transport.ResponseWriter for HTTP. Events go
// out as typed SSE frames:
//
//	event: {type}\n
//	data: {json}\n
//	\n
//
// response.completed and response.failed are terminal; [DONE] follows them.
type responseWriter struct {
	sseStream
}

var _ transport.ResponseWriter = (*responseWriter)(nil)

func newResponseWriter(w http.ResponseWriter, heartbeat time.Duration) *responseWriter {
	return &responseWriter{sseStream: sseStream{
		w:         w,
		rc:        http.NewResponseController(w),
		heartbeat: heartbeat,
	}}
}

// WriteResponse sends a complete non-streaming JSON body. This is mutually
// exclusive with WriteEvent.
func (s *responseWriter) WriteResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerStreaming {
		return errors.New("cannot write response: streaming has already started")
	}
	if s.state == writerCompleted {
		return errors.New("cannot write response: writer is completed")
	}

	s.w.Header().Set("Content-Type", "application/json")
	s.state = writerCompleted

	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte("{}")
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

// WriteEvent sends a single typed SSE frame.
func (s *responseWriter) WriteEvent(ctx context.Context, event api.StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == writerCompleted {
		return errors.New("cannot write event: writer is completed")
	}
	if s.state == writerIdle {
		s.beginStreaming()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	if terminalEvents[event.Type] {
		return s.writeDone()
	}
	return nil
}
