// Command server runs the bruecke API server, an OpenAI-compatible HTTP
// facade over turn sessions driven against an upstream Chat Completions
// backend.
//
// Configuration is resolved from defaults, an optional YAML file and
// BRUECKE_* environment variables, in that order. The file is found via
// the -config flag, the BRUECKE_CONFIG environment variable or a
// bruecke.yaml in the working directory. See pkg/config for the full
// reference. Debug logging is controlled separately by BRUECKE_DEBUG and
// BRUECKE_LOG_LEVEL; see pkg/debug.
//
// Minimal invocation:
//
//	BRUECKE_BACKEND_URL=https://api.openai.com/v1 server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rhuss/bruecke/pkg/auth"
	"github.com/rhuss/bruecke/pkg/auth/apikey"
	"github.com/rhuss/bruecke/pkg/auth/jwt"
	"github.com/rhuss/bruecke/pkg/config"
	"github.com/rhuss/bruecke/pkg/debug"
	"github.com/rhuss/bruecke/pkg/engine"
	"github.com/rhuss/bruecke/pkg/provider"
	"github.com/rhuss/bruecke/pkg/provider/openaichat"
	"github.com/rhuss/bruecke/pkg/storage"
	"github.com/rhuss/bruecke/pkg/storage/memory"
	"github.com/rhuss/bruecke/pkg/storage/postgres"
	"github.com/rhuss/bruecke/pkg/tools"
	"github.com/rhuss/bruecke/pkg/tools/mcp"
	httpx "github.com/rhuss/bruecke/pkg/transport/http"
	"github.com/rhuss/bruecke/pkg/turn"
	"github.com/rhuss/bruecke/pkg/turn/direct"
	"github.com/rhuss/bruecke/pkg/turn/thread"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	debug.Init()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()

	backend := openaichat.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	defer backend.Close()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	if store != nil {
		defer store.Close()
	}

	router := buildRouter(ctx, cfg)
	if router != nil {
		defer router.Close()
	}

	sessions, err := buildSessions(cfg, backend, router, store)
	if err != nil {
		return fmt.Errorf("initializing turn sessions: %w", err)
	}

	eng, err := engine.New(sessions, engine.Config{
		Binding:    cfg.Engine.Binding,
		WorkingDir: cfg.Engine.WorkingDir,
	})
	if err != nil {
		return fmt.Errorf("initializing engine: %w", err)
	}

	opts := []httpx.ServerOption{
		httpx.WithAddr(cfg.Server.Addr),
		httpx.WithMaxBodySize(cfg.Server.MaxBodySize),
		httpx.WithHeartbeat(cfg.Server.Heartbeat),
		httpx.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if chain := buildAuthChain(cfg); chain != nil {
		opts = append(opts, httpx.WithHTTPMiddleware(auth.Middleware(chain, auth.DefaultBypassEndpoints)))
	}

	srv := httpx.NewServer(eng, eng, store, opts...)

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"backend", cfg.Backend.URL,
		"binding", cfg.Engine.Binding,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
	)

	return srv.ListenAndServe()
}

// buildStore creates the conversation store selected by the
// configuration. A nil store disables conversation retrieval; the HTTP
// layer answers those requests with 501.
func buildStore(ctx context.Context, cfg *config.Config) (storage.ConversationStore, error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MinConns:       cfg.Storage.Postgres.MinConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		slog.Info("storage enabled", "type", "postgres")
		return store, nil
	case "none":
		slog.Info("storage disabled")
		return nil, nil
	default:
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

// buildRouter connects the configured MCP servers and wraps them in a
// tool router. Returns nil when no servers are configured. A server
// that fails to connect is kept in the set with a warning; its tools
// stay invisible until the process restarts.
func buildRouter(ctx context.Context, cfg *config.Config) *tools.Router {
	if len(cfg.MCP.Servers) == 0 {
		return nil
	}
	if cfg.Engine.Binding == "direct" {
		slog.Warn("mcp servers configured but binding is direct, tool execution disabled")
	}

	clients := make(map[string]*mcp.Client, len(cfg.MCP.Servers))
	for _, sc := range cfg.MCP.Servers {
		client := mcp.NewClient(mcp.ServerConfig{
			Name:         sc.Name,
			Transport:    sc.Transport,
			URL:          sc.URL,
			Headers:      sc.Headers,
			AllowedTools: sc.AllowedTools,
		})
		// The connect context must outlive startup: SSE sessions stay
		// bound to it.
		if err := client.Connect(ctx); err != nil {
			slog.Warn("connecting to MCP server", "server", sc.Name, "error", err)
		} else {
			slog.Info("connected to MCP server", "server", sc.Name, "url", sc.URL)
		}
		clients[sc.Name] = client
	}

	return tools.NewRouter(mcp.NewExecutor(clients))
}

// buildSessions creates the turn session manager for the configured
// binding.
func buildSessions(cfg *config.Config, backend provider.Provider, router *tools.Router, store storage.ConversationStore) (turn.Manager, error) {
	switch cfg.Engine.Binding {
	case "direct":
		return direct.NewManager(backend)
	default:
		return thread.NewManager(backend, router, store, thread.Config{
			MaxToolRounds: cfg.Engine.MaxToolRounds,
		})
	}
}

// buildAuthChain creates the authenticator chain selected by the
// configuration, or nil when authentication is disabled.
func buildAuthChain(cfg *config.Config) *auth.AuthChain {
	switch cfg.Auth.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:  k.Subject,
					Scopes:   k.Scopes,
					Metadata: k.Metadata,
				},
			})
		}
		return &auth.AuthChain{
			Authenticators:  []auth.Authenticator{apikey.New(entries)},
			DefaultDecision: auth.No,
		}
	case "jwt":
		return &auth.AuthChain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				JWKSURL:  cfg.Auth.JWT.JWKSURL,
				Issuer:   cfg.Auth.JWT.Issuer,
				Audience: cfg.Auth.JWT.Audience,
			})},
			DefaultDecision: auth.No,
		}
	default:
		return nil
	}
}
