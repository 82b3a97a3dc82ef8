package reddit

import "errors"

// Sentinel errors surfaced by the client.
var (
	// ErrAuthenticationFailed indicates the authorization endpoint rejected the
	// refresh request or returned a token payload we could not use. It is never
	// retried inside the transport chain.
	ErrAuthenticationFailed = errors.New("reddit: authentication failed")

	// ErrMalformedResponse indicates a listing page was missing required fields
	// or was not valid JSON. It aborts the current pagination run.
	ErrMalformedResponse = errors.New("reddit: malformed response")
)
