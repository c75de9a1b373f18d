package domain

import "fmt"

// ErrorKind classifies failures for the scheduler's retry policy.
type ErrorKind string

const (
	// ErrMalformed marks a record that cannot be normalized; it is dropped
	// and the pipeline continues.
	ErrMalformed ErrorKind = "malformed"
	// ErrTransientUpstream covers network failures, 5xx, timeouts and 429;
	// the next tick retries.
	ErrTransientUpstream ErrorKind = "transient_upstream"
	// ErrPermanentUpstream covers 4xx other than 429, auth failures and
	// schema mismatches; the job keeps its schedule but operators should look.
	ErrPermanentUpstream ErrorKind = "permanent_upstream"
	// ErrParse covers RSS/HTML parse failures, treated like transient.
	ErrParse ErrorKind = "parse"
	// ErrStoreWrite marks a refused persistence write; the in-memory index
	// still holds the record.
	ErrStoreWrite ErrorKind = "store_write"
)

// UpstreamError is the typed failure a source adapter returns instead of
// raising. Retryable mirrors the transient/permanent split.
type UpstreamError struct {
	Kind      ErrorKind
	Message   string
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Transient builds a retryable upstream error.
func Transient(format string, args ...any) *UpstreamError {
	return &UpstreamError{Kind: ErrTransientUpstream, Message: fmt.Sprintf(format, args...), Retryable: true}
}

// Permanent builds a non-retryable upstream error.
func Permanent(format string, args ...any) *UpstreamError {
	return &UpstreamError{Kind: ErrPermanentUpstream, Message: fmt.Sprintf(format, args...), Retryable: false}
}

// ParseFailure builds a parse error; sources tend to fix themselves, so it
// is treated as retryable.
func ParseFailure(format string, args ...any) *UpstreamError {
	return &UpstreamError{Kind: ErrParse, Message: fmt.Sprintf(format, args...), Retryable: true}
}

// Malformed builds a per-record normalization error.
func Malformed(format string, args ...any) *UpstreamError {
	return &UpstreamError{Kind: ErrMalformed, Message: fmt.Sprintf(format, args...), Retryable: false}
}

// FetchResult is the typed outcome of one adapter call: offers on success,
// a classified error otherwise.
type FetchResult struct {
	Offers []RawOffer
	Err    *UpstreamError
}

// Ok reports whether the fetch produced a usable (possibly empty) batch.
func (r FetchResult) Ok() bool { return r.Err == nil }
