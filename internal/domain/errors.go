package domain

import "errors"

// Error kinds for the natural-language interface. Callers classify
// failures with errors.Is; wrapping sites add call-specific context.
var (
	// ErrRemoteService marks a network or non-success failure of the
	// reasoning or embedding service. It triggers the local fallback where
	// one exists.
	ErrRemoteService = errors.New("remote service failure")

	// ErrMalformedOutput marks service output that failed parsing after all
	// repair attempts. It is surfaced to the caller, never swallowed into an
	// empty result.
	ErrMalformedOutput = errors.New("malformed service output")

	// ErrValidation marks a value outside a fixed enumerated set. Handlers
	// absorb it by coercing to a documented default with low confidence.
	ErrValidation = errors.New("validation failure")

	// ErrToolExecution marks a data-store error during a tool call.
	ErrToolExecution = errors.New("tool execution failure")

	// ErrCancelled marks a caller-initiated cancellation or deadline. It is
	// distinct from ErrRemoteService and never triggers a fallback hop.
	ErrCancelled = errors.New("operation cancelled")
)
