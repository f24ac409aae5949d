// Package storage defines the ConversationStore contract for persisting
// conversation transcripts, plus the sentinel errors shared by its
// implementations. The thread engine records one TurnRecord per completed
// turn; the HTTP adapter reads transcripts back for the conversations
// endpoint.
//
// Adapters live in the memory and postgres subpackages.
package storage
