package thread

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rhuss/bruecke/pkg/provider"
	"github.com/rhuss/bruecke/pkg/storage"
	"github.com/rhuss/bruecke/pkg/tools"
	"github.com/rhuss/bruecke/pkg/turn"
)

// Config holds tuning knobs for the thread engine.
type Config struct {
	// MaxToolRounds bounds the provider round-trips within one turn when
	// the model keeps requesting tool calls. Zero or negative means the
	// default of 8.
	MaxToolRounds int

	// MaxSessions bounds the number of retained threads. The least
	// recently used thread is evicted when the limit is reached; a
	// running turn on an evicted thread finishes normally, the thread
	// just cannot be resolved again. Zero or negative means the default
	// of 1024.
	MaxSessions int

	// EventBuffer is the capacity of each thread's event stream. Zero or
	// negative means the default of 256.
	EventBuffer int
}

func (c Config) maxToolRounds() int {
	if c.MaxToolRounds <= 0 {
		return 8
	}
	return c.MaxToolRounds
}

func (c Config) maxSessions() int {
	if c.MaxSessions <= 0 {
		return 1024
	}
	return c.MaxSessions
}

func (c Config) eventBuffer() int {
	if c.EventBuffer <= 0 {
		return 256
	}
	return c.EventBuffer
}

// Manager hands out Threads keyed by session id. It implements turn.Manager.
type Manager struct {
	provider provider.Provider
	router   *tools.Router
	store    storage.ConversationStore
	cfg      Config

	mu      sync.Mutex
	threads map[string]*Thread
	lruList *list.List // front = most recently used, back = least recently used
}

// Ensure Manager implements turn.Manager at compile time.
var _ turn.Manager = (*Manager)(nil)

// NewManager creates the thread engine. The provider must not be nil; the
// router and store may be nil for tool-less or stateless operation.
func NewManager(p provider.Provider, router *tools.Router, store storage.ConversationStore, cfg Config) (*Manager, error) {
	if p == nil {
		return nil, errors.New("thread: provider must not be nil")
	}
	return &Manager{
		provider: p,
		router:   router,
		store:    store,
		cfg:      cfg,
		threads:  make(map[string]*Thread),
		lruList:  list.New(),
	}, nil
}

// StartSession creates a fresh thread configured by opts.
func (m *Manager) StartSession(_ context.Context, opts turn.SessionOptions) (turn.Session, error) {
	th := newThread(turn.NewSessionID(), opts, m)

	m.mu.Lock()
	if len(m.threads) >= m.cfg.maxSessions() {
		m.evictOldest()
	}
	th.lruElem = m.lruList.PushFront(th.id)
	m.threads[th.id] = th
	m.mu.Unlock()

	slog.Info("session started", "session_id", th.id, "model", opts.Model)
	return th, nil
}

// GetSession resolves a previously created thread by id.
func (m *Manager) GetSession(_ context.Context, id string) (turn.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	th, ok := m.threads[id]
	if !ok {
		return nil, turn.ErrSessionNotFound
	}
	m.lruList.MoveToFront(th.lruElem)
	return th, nil
}

// evictOldest removes the least recently used thread from the registry.
// Must be called with m.mu held.
func (m *Manager) evictOldest() {
	back := m.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	m.lruList.Remove(back)
	delete(m.threads, id)
	slog.Debug("session evicted", "session_id", id)
}

// providerTools converts the router's tool definitions to the provider's
// declaration shape. A nil router means no tools are offered to the model.
func (m *Manager) providerTools() []provider.Tool {
	if m.router == nil {
		return nil
	}

	defs := m.router.Definitions()
	if len(defs) == 0 {
		return nil
	}

	out := make([]provider.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, provider.Tool{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}
