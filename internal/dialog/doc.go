// Package dialog implements the conversational workflow engine: per-user
// dialog sessions with passive expiry, declarative step graphs, typed action
// tokens decoded once at the transport boundary, and a coordinator that
// serializes inbound events per owner while keeping owners independent.
//
// The package is transport-agnostic. It consumes normalized Inbound events
// and produces Directives (message key + button layout); rendering and
// delivery belong to the caller.
package dialog
