package thread

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"github.com/rhuss/bruecke/pkg/provider"
	"github.com/rhuss/bruecke/pkg/turn"
)

// Thread is one conversation bound to a session id. It accepts one turn at
// a time: Submit starts the run loop on its own goroutine, and NextEvent
// hands out the events the loop emits. The event stream multiplexes all
// turns of the session; consumers discard events tagged with foreign ids.
type Thread struct {
	id   string
	opts turn.SessionOptions
	mgr  *Manager

	events chan turn.Event

	mu      sync.Mutex
	active  bool
	history []provider.Message

	lruElem *list.Element // registry position, guarded by the Manager's mutex
}

// Ensure Thread implements turn.Session at compile time.
var _ turn.Session = (*Thread)(nil)

func newThread(id string, opts turn.SessionOptions, mgr *Manager) *Thread {
	return &Thread{
		id:     id,
		opts:   opts,
		mgr:    mgr,
		events: make(chan turn.Event, mgr.cfg.eventBuffer()),
	}
}

// ID returns the session id.
func (t *Thread) ID() string {
	return t.id
}

// Submit starts a turn. The run loop executes on its own goroutine scoped
// to ctx; its events arrive through NextEvent tagged with req.ID. Returns
// turn.ErrTurnActive while a previous turn has not finished.
func (t *Thread) Submit(ctx context.Context, req turn.Request) error {
	if req.ID == "" {
		return errors.New("thread: request id must not be empty")
	}
	if req.Instruction == "" {
		return errors.New("thread: instruction must not be empty")
	}

	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return turn.ErrTurnActive
	}
	t.active = true
	t.mu.Unlock()

	go t.run(ctx, req)
	return nil
}

// NextEvent returns the next event from the thread's stream, blocking
// until one arrives or ctx is done.
func (t *Thread) NextEvent(ctx context.Context) (turn.Event, error) {
	select {
	case ev := <-t.events:
		return ev, nil
	case <-ctx.Done():
		return turn.Event{}, ctx.Err()
	}
}

// endTurn releases the turn slot. The mutex hand-off orders this turn's
// history writes before the next turn's reads.
func (t *Thread) endTurn() {
	t.mu.Lock()
	t.active = false
	t.mu.Unlock()
}
