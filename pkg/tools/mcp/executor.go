package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rhuss/bruecke/pkg/tools"
)

// Executor implements tools.Executor over a set of MCP servers. It
// discovers their tools lazily on first use and routes each call to the
// server that provides it.
type Executor struct {
	mu sync.RWMutex

	// clients maps server name to Client.
	clients map[string]*Client

	// toolToServer maps tool name to the server name that provides it.
	toolToServer map[string]string

	// discovered tracks whether tools have been discovered.
	discovered bool
}

var _ tools.Executor = (*Executor)(nil)

// NewExecutor creates an Executor over the given connected MCP clients,
// keyed by server name.
func NewExecutor(clients map[string]*Client) *Executor {
	return &Executor{
		clients:      clients,
		toolToServer: make(map[string]string),
	}
}

// Definitions returns all tool definitions discovered from the connected
// MCP servers. The first call triggers discovery.
func (e *Executor) Definitions() []tools.Definition {
	e.ensureDiscovered()

	e.mu.RLock()
	defer e.mu.RUnlock()

	var defs []tools.Definition
	for _, client := range e.clients {
		client.mu.Lock()
		defs = append(defs, client.cachedDefs...)
		client.mu.Unlock()
	}
	return defs
}

// CanExecute returns true if any connected MCP server provides the named
// tool. The first call triggers lazy discovery.
func (e *Executor) CanExecute(toolName string) bool {
	e.ensureDiscovered()

	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.toolToServer[toolName]
	return ok
}

// Execute routes the tool call to the correct MCP server and returns the
// result.
func (e *Executor) Execute(ctx context.Context, call tools.Call) (*tools.Result, error) {
	e.ensureDiscovered()

	e.mu.RLock()
	serverName, ok := e.toolToServer[call.Name]
	if !ok {
		e.mu.RUnlock()
		return &tools.Result{
			CallID:  call.ID,
			Output:  fmt.Sprintf("no MCP server provides tool %q", call.Name),
			IsError: true,
		}, nil
	}
	client := e.clients[serverName]
	e.mu.RUnlock()

	return client.CallTool(ctx, call)
}

// Close closes all MCP client connections.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastErr error
	for name, client := range e.clients {
		if err := client.Close(); err != nil {
			slog.Warn("failed to close MCP client", "server", name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// ensureDiscovered triggers tool discovery if it hasn't been done yet.
func (e *Executor) ensureDiscovered() {
	e.mu.RLock()
	if e.discovered {
		e.mu.RUnlock()
		return
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if e.discovered {
		return
	}

	ctx := context.Background()
	for name, client := range e.clients {
		defs, err := client.DiscoverTools(ctx)
		if err != nil {
			slog.Error("failed to discover tools from MCP server",
				"server", name,
				"error", err,
			)
			continue
		}

		for _, def := range defs {
			if _, exists := e.toolToServer[def.Name]; exists {
				slog.Warn("duplicate MCP tool name, using first provider",
					"tool", def.Name,
					"server", name,
				)
				continue
			}
			e.toolToServer[def.Name] = name
		}

		slog.Info("discovered MCP tools",
			"server", name,
			"count", len(defs),
		)
	}

	e.discovered = true
}
