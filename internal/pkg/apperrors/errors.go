package apperrors

import "errors"

var (
	// ErrInvalidCursor marks a malformed pagination token. The request is
	// rejected outright rather than treated as "first page".
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrRateLimited marks an admission-control rejection.
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstreamUnavailable marks a failed storage round trip. An empty page
	// and a failed fetch are different things to a client.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an authenticated but not permitted request.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks duplicate state transitions (already liked, already followed).
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
