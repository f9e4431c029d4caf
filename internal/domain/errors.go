package domain

import "fmt"

// UnknownModelError reports a model name that matches no registered short
// name and no canonical identifier. It is returned before any network call
// is attempted.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model: %q", e.Name)
}

// MalformedConversationError reports a conversation that violates the shape
// invariants required by the target provider, such as a missing leading
// system turn. It is returned before any network call is attempted.
type MalformedConversationError struct {
	Reason string
}

func (e *MalformedConversationError) Error() string {
	return "malformed conversation: " + e.Reason
}

// ProviderTransportError reports a network or provider failure during a
// streaming call. Fragments already delivered to the sink stand; there is
// no rollback.
type ProviderTransportError struct {
	Provider string
	Cause    error
}

func (e *ProviderTransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Cause)
}

func (e *ProviderTransportError) Unwrap() error {
	return e.Cause
}

// NoResponseProducedError reports that the refinement loop completed
// without a single usable response.
type NoResponseProducedError struct{}

func (e *NoResponseProducedError) Error() string {
	return "no response produced by any refinement pass"
}
