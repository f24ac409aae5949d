package tools

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Router aggregates executors and dispatches tool calls by name. The first
// registered executor that claims a tool name wins; later executors never
// shadow earlier ones.
type Router struct {
	mu        sync.RWMutex
	executors []Executor
}

// Ensure Router composes: a Router is itself an Executor.
var _ Executor = (*Router)(nil)

// NewRouter creates a Router over the given executors.
func NewRouter(executors ...Executor) *Router {
	return &Router{executors: executors}
}

// Register appends an executor to the routing chain.
func (r *Router) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors = append(r.executors, e)
}

// Definitions returns the merged tool definitions of all executors.
// Duplicate names keep the first definition encountered.
func (r *Router) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var defs []Definition
	for _, e := range r.executors {
		for _, d := range e.Definitions() {
			if seen[d.Name] {
				slog.Warn("duplicate tool name, keeping first definition", "tool", d.Name)
				continue
			}
			seen[d.Name] = true
			defs = append(defs, d)
		}
	}
	return defs
}

// CanExecute reports whether any registered executor handles the named tool.
func (r *Router) CanExecute(toolName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.executors {
		if e.CanExecute(toolName) {
			return true
		}
	}
	return false
}

// Execute dispatches the call to the first executor that claims its name.
// An unroutable call produces an error Result so the outcome can be fed
// back to the model instead of failing the turn.
func (r *Router) Execute(ctx context.Context, call Call) (*Result, error) {
	r.mu.RLock()
	var target Executor
	for _, e := range r.executors {
		if e.CanExecute(call.Name) {
			target = e
			break
		}
	}
	r.mu.RUnlock()

	if target == nil {
		return &Result{
			CallID:  call.ID,
			Output:  "no executor provides tool " + call.Name,
			IsError: true,
		}, nil
	}
	return target.Execute(ctx, call)
}

// Close closes every registered executor that holds resources.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for _, e := range r.executors {
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("failed to close tool executor", "error", err)
				lastErr = err
			}
		}
	}
	return lastErr
}
