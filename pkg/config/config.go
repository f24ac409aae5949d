// Package config provides unified configuration for the bruecke adapter.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (BRUECKE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the bruecke adapter.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Engine  EngineConfig  `yaml:"engine"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	MCP     MCPConfig     `yaml:"mcp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default: "127.0.0.1:11435"
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	Heartbeat       time.Duration `yaml:"heartbeat"`        // SSE keep-alive interval, default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// EngineConfig holds turn engine settings.
type EngineConfig struct {
	Binding       string `yaml:"binding"`         // "thread" or "direct", default: "thread"
	WorkingDir    string `yaml:"working_dir"`     // optional, handed to every turn
	MaxToolRounds int    `yaml:"max_tool_rounds"` // default: 8
}

// BackendConfig holds the model backend connection settings.
type BackendConfig struct {
	URL        string        `yaml:"url"`          // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // aggregate request timeout, default: 120s
}

// StorageConfig holds transcript store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres", or "none", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MinConns       int32  `yaml:"min_conns"`        // default: 5
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey", or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`      // JWT settings for type=jwt
}

// APIKeyConfig describes a single API key entry.
// JSON tags support the BRUECKE_API_KEYS environment override.
type APIKeyConfig struct {
	Key      string            `yaml:"key" json:"key"`
	KeyFile  string            `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject  string            `yaml:"subject" json:"subject"`
	Scopes   []string          `yaml:"scopes" json:"scopes"`
	Metadata map[string]string `yaml:"metadata" json:"metadata"`
}

// JWTConfig describes JWT/JWKS validation settings.
type JWTConfig struct {
	JWKSURL  string `yaml:"jwks_url"` // required for type=jwt
	Issuer   string `yaml:"issuer"`   // optional, validated when set
	Audience string `yaml:"audience"` // optional, validated when set
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
// JSON tags support the BRUECKE_MCP_SERVERS environment override.
type MCPServerConfig struct {
	Name         string            `yaml:"name" json:"name"`
	Transport    string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL          string            `yaml:"url" json:"url"`
	Headers      map[string]string `yaml:"headers" json:"headers"`
	AllowedTools []string          `yaml:"allowed_tools" json:"allowed_tools"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:11435",
			MaxBodySize:     10 << 20,
			Heartbeat:       15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Binding:       "thread",
			MaxToolRounds: 8,
		},
		Backend: BackendConfig{
			Timeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns:       25,
				MinConns:       5,
				MigrateOnStart: true,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
	}
}
