// Package mcp connects the thread engine's tool loop to external MCP
// (Model Context Protocol) servers. It wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk): one Client per configured
// server handles connection, lazy tool discovery, and tool execution,
// while Executor implements tools.Executor across all servers and routes
// each call to the server that provides the tool.
//
// ServerConfig selects the transport (SSE or streamable-http), the
// endpoint URL, static authentication headers, and an optional
// allowed_tools filter narrowing what the model may call.
package mcp
