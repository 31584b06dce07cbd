package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a MIME type no extractor can handle.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrFileTooLarge indicates a source file exceeds MaxSourceFileSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrForbidden indicates the caller does not own the requested entity.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates a rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrQueueUnavailable indicates the work queue cannot be reached.
	ErrQueueUnavailable = errors.New("work queue unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates the user has no stored source credential.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the stored credential was rejected.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Pipeline Errors.

	// ErrInvalidJob indicates a dequeued job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrRawDocumentMissing indicates vectorize ran before fetch persisted text.
	ErrRawDocumentMissing = errors.New("raw document missing")

	// ErrEmptyDocument indicates chunking produced zero chunks.
	ErrEmptyDocument = errors.New("empty document")

	// ErrConflict indicates a conditional write lost to a concurrent one.
	ErrConflict = errors.New("conflict")
)

// ErrorKind tags a failure with how the pipeline must react to it.
type ErrorKind int

const (
	// Transient failures are retried with backoff (network, rate limit, unknown).
	Transient ErrorKind = iota

	// Permanent failures are never retried (bad request, unauthorised, forbidden, not found).
	Permanent

	// InvariantViolation marks pipeline bugs or impossible input; never retried.
	InvariantViolation
)

// String returns the lowercase name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may be retried.
func (k ErrorKind) Retryable() bool {
	return k == Transient
}

// ClassifiedError is an error tagged with an ErrorKind.
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewPermanent tags err as a permanent failure.
func NewPermanent(err error) error {
	return &ClassifiedError{Kind: Permanent, Err: err}
}

// NewTransient tags err as a transient failure.
func NewTransient(err error) error {
	return &ClassifiedError{Kind: Transient, Err: err}
}

// NewInvariantViolation tags err as an invariant violation.
func NewInvariantViolation(err error) error {
	return &ClassifiedError{Kind: InvariantViolation, Err: err}
}

// Permanentf formats a permanent failure.
func Permanentf(format string, args ...any) error {
	return NewPermanent(fmt.Errorf(format, args...))
}

// Classify returns the kind of err. Errors already wrapped in a
// ClassifiedError keep their tag; a handful of domain sentinels have a
// fixed kind; everything else is transient.
func Classify(err error) ErrorKind {
	if err == nil {
		return Transient
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case errors.Is(err, ErrRawDocumentMissing), errors.Is(err, ErrEmptyDocument), errors.Is(err, ErrInvalidJob):
		return InvariantViolation
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrFileTooLarge),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrAuthRequired), errors.Is(err, ErrAuthInvalid),
		errors.Is(err, ErrInvalidInput):
		return Permanent
	default:
		return Transient
	}
}

// IsPermanentStatus reports whether an HTTP status code from a remote
// service (file source, embedding provider) is a permanent failure.
func IsPermanentStatus(code int) bool {
	switch code {
	case 400, 401, 403, 404:
		return true
	default:
		return false
	}
}
