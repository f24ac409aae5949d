// Package direct provides the stateless turn engine: every session is
// ephemeral, holds no history, and maps one turn to exactly one provider
// stream. GetSession never resolves an id, so conversation continuity is
// not offered; callers that need it use the thread engine instead.
package direct

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rhuss/bruecke/pkg/observability"
	"github.com/rhuss/bruecke/pkg/provider"
	"github.com/rhuss/bruecke/pkg/turn"
)

// eventBuffer is the capacity of a session's event stream.
const eventBuffer = 256

// Manager creates ephemeral sessions over a single provider. It implements
// turn.Manager.
type Manager struct {
	provider provider.Provider
}

// Ensure Manager implements turn.Manager at compile time.
var _ turn.Manager = (*Manager)(nil)

// NewManager creates the direct engine. The provider must not be nil.
func NewManager(p provider.Provider) (*Manager, error) {
	if p == nil {
		return nil, errors.New("direct: provider must not be nil")
	}
	return &Manager{provider: p}, nil
}

// StartSession creates a fresh ephemeral session configured by opts.
func (m *Manager) StartSession(_ context.Context, opts turn.SessionOptions) (turn.Session, error) {
	s := &Session{
		id:       turn.NewSessionID(),
		opts:     opts,
		provider: m.provider,
		events:   make(chan turn.Event, eventBuffer),
	}
	slog.Debug("direct session started", "session_id", s.id, "model", opts.Model)
	return s, nil
}

// GetSession never resolves: direct sessions are not retained.
func (m *Manager) GetSession(_ context.Context, _ string) (turn.Session, error) {
	return nil, turn.ErrSessionNotFound
}

// Session is one ephemeral turn target. It accepts one turn at a time and
// forwards the provider stream as turn events.
type Session struct {
	id       string
	opts     turn.SessionOptions
	provider provider.Provider

	events chan turn.Event

	mu     sync.Mutex
	active bool
}

// Ensure Session implements turn.Session at compile time.
var _ turn.Session = (*Session)(nil)

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Submit starts a turn. The run loop executes on its own goroutine scoped
// to ctx; its events arrive through NextEvent tagged with req.ID.
func (s *Session) Submit(ctx context.Context, req turn.Request) error {
	if req.ID == "" {
		return errors.New("direct: request id must not be empty")
	}
	if req.Instruction == "" {
		return errors.New("direct: instruction must not be empty")
	}

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return turn.ErrTurnActive
	}
	s.active = true
	s.mu.Unlock()

	go s.run(ctx, req)
	return nil
}

// NextEvent returns the next event from the session's stream, blocking
// until one arrives or ctx is done.
func (s *Session) NextEvent(ctx context.Context) (turn.Event, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-ctx.Done():
		return turn.Event{}, ctx.Err()
	}
}

func (s *Session) endTurn() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// run executes one turn as a single provider stream. The terminal
// turn_complete carries no final message; the streamed deltas are
// authoritative. When ctx dies the loop winds down without a terminal
// event; the consumer already observed the cancellation through NextEvent.
func (s *Session) run(ctx context.Context, req turn.Request) {
	defer s.endTurn()

	emit := func(ev turn.Event) bool {
		ev.ID = req.ID
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(turn.Event{Type: turn.EventTaskStarted}) {
		return
	}

	model := req.Model
	if model == "" {
		model = s.opts.Model
	}

	provReq := &provider.Request{
		Model:    model,
		Messages: []provider.Message{{Role: "user", Content: req.Instruction}},
		Stream:   true,
	}

	fail := func(err error) {
		observability.BackendRequestsTotal.WithLabelValues(model, "error").Inc()
		if ctx.Err() != nil {
			return
		}
		slog.Warn("backend stream failed",
			"session_id", s.id,
			"request_id", req.ID,
			"model", model,
			"error", err.Error(),
		)
		s.endTurn()
		emit(turn.Event{Type: turn.EventError, Message: err.Error()})
	}

	start := time.Now()
	ch, err := s.provider.Stream(ctx, provReq)
	if err != nil {
		observability.BackendDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
		fail(err)
		return
	}

	var usage *provider.Usage
	for ev := range ch {
		switch ev.Type {
		case provider.EventTextDelta:
			emit(turn.Event{Type: turn.EventAgentMessageDelta, Delta: ev.Delta})
		case provider.EventToolCallDone:
			// No tools are declared, but a call the backend produces
			// anyway is surfaced rather than swallowed.
			if ev.ToolCall == nil {
				continue
			}
			emit(turn.Event{
				Type: turn.EventItem,
				Item: turn.NewFunctionCallItem(ev.ToolCall.ID, ev.ToolCall.Function.Name, ev.ToolCall.Function.Arguments),
			})
		case provider.EventDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventError:
			observability.BackendDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
			fail(ev.Err)
			return
		}
	}
	observability.BackendDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		observability.BackendRequestsTotal.WithLabelValues(model, "error").Inc()
		return
	}
	observability.BackendRequestsTotal.WithLabelValues(model, "success").Inc()

	// Release the turn slot before the terminal event so the consumer can
	// submit again the moment it observes it.
	s.endTurn()

	if usage != nil {
		observability.TokensTotal.WithLabelValues(model, "input").Add(float64(usage.PromptTokens))
		observability.TokensTotal.WithLabelValues(model, "output").Add(float64(usage.CompletionTokens))
		emit(turn.Event{Type: turn.EventTokenCount, Usage: &turn.Usage{
			InputTokens:  usage.PromptTokens,
			OutputTokens: usage.CompletionTokens,
			TotalTokens:  usage.TotalTokens,
		}})
	}

	emit(turn.Event{Type: turn.EventTurnComplete})
}
