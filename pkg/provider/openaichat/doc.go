// Package openaichat implements the provider interface against any
// OpenAI-compatible Chat Completions backend (OpenAI, vLLM, LiteLLM,
// llama.cpp server, the bundled mock backend). It speaks JSON over HTTP and
// consumes the backend's SSE chunk stream.
package openaichat
