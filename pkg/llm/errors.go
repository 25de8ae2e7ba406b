package llm

import "errors"

// Generation failure taxonomy. Providers wrap these sentinels so callers can
// discriminate with errors.Is without depending on provider internals.
var (
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("llm: request timed out")

	// ErrUnauthorized indicates a bad or missing credential.
	ErrUnauthorized = errors.New("llm: unauthorized")

	// ErrRateLimited indicates the endpoint rejected the request due to quota.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrModelLoading indicates a cold-starting model; transient, callers may
	// retry later.
	ErrModelLoading = errors.New("llm: model is loading")

	// ErrModelNotFound indicates the model identifier does not exist.
	ErrModelNotFound = errors.New("llm: model not found")

	// ErrNetwork indicates a generic transport failure.
	ErrNetwork = errors.New("llm: network error")

	// ErrUpstream indicates any other non-2xx status or malformed payload.
	ErrUpstream = errors.New("llm: upstream error")
)

// IsTransient reports whether the failure is worth retrying later.
func IsTransient(err error) bool {
	return errors.Is(err, ErrModelLoading) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}
