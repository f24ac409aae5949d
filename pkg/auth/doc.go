// Package auth provides pluggable authentication for the bruecke adapter.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default decision
// applies when all authenticators abstain.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from the
// engine. The middleware injects the caller identity into the request
// context for downstream consumers.
package auth
