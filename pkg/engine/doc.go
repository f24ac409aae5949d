// Package engine adapts completion-shaped API requests onto the turn
// protocol. It implements transport.Handler: each incoming chat completion
// or responses-dialect request is normalized into a single instruction,
// resolved onto a session, submitted as a fresh turn, and the session's
// event stream is consumed until the turn's terminal event.
//
// The engine owns the semantic mapping in both directions. On the way in it
// flattens role-tagged messages and block-list content into one instruction
// string. On the way out it assembles turn events into aggregate bodies or
// forwards them as SSE chunks and typed events, mapping call items to tool
// calls and terminal failures to the closed error vocabulary of pkg/api.
//
// The engine is stateless between requests; sessions and their history
// belong to the turn.Manager behind it.
package engine
