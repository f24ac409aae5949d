// Package turn defines the contract between the bruecke adapter and the
// engine that executes conversational turns.
//
// A turn is one unit of work: the adapter submits a [Request] carrying a
// fresh id to a [Session], then pulls the session's totally-ordered event
// stream until a terminal [Event] tagged with that id arrives. Sessions
// multiplex events from concurrent turns onto one stream; the request id is
// the only isolation mechanism, so consumers must discard events tagged with
// foreign ids.
//
// Two engine bindings implement the contract: thread (session-backed, with
// history and tools) and direct (stateless pass-through to a model client).
// The adapter depends only on the interfaces defined here.
package turn
