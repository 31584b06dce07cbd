package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobKind names a job stream.
type JobKind string

// Job kinds.
const (
	JobKindFetch     JobKind = "fetch"
	JobKindVectorize JobKind = "vectorize"
)

// Valid returns true if the kind is recognised.
func (k JobKind) Valid() bool {
	return k == JobKindFetch || k == JobKindVectorize
}

// String returns the string representation.
func (k JobKind) String() string {
	return string(k)
}

// ParseJobKind converts a string into a JobKind.
func ParseJobKind(s string) (JobKind, error) {
	k := JobKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, s)
	}
	return k, nil
}

// Job is implemented by the tagged job variants.
type Job interface {
	Kind() JobKind
	Target() (userID, fileID string)
	Validate() error
}

// FetchJob asks the fetch stage to download and extract a file.
type FetchJob struct {
	UserID     string
	FileID     string
	EnqueuedAt time.Time
}

// Kind returns JobKindFetch.
func (j FetchJob) Kind() JobKind { return JobKindFetch }

// Target returns the file the job is about.
func (j FetchJob) Target() (userID, fileID string) { return j.UserID, j.FileID }

// Validate rejects jobs without a user or file.
func (j FetchJob) Validate() error {
	return validateTarget(JobKindFetch, j.UserID, j.FileID)
}

// VectorizeJob asks the vectorize stage to chunk and embed a raw document.
type VectorizeJob struct {
	UserID     string
	FileID     string
	EnqueuedAt time.Time
}

// Kind returns JobKindVectorize.
func (j VectorizeJob) Kind() JobKind { return JobKindVectorize }

// Target returns the file the job is about.
func (j VectorizeJob) Target() (userID, fileID string) { return j.UserID, j.FileID }

// Validate rejects jobs without a user or file.
func (j VectorizeJob) Validate() error {
	return validateTarget(JobKindVectorize, j.UserID, j.FileID)
}

func validateTarget(kind JobKind, userID, fileID string) error {
	if userID == "" {
		return fmt.Errorf("%w: %s job missing userId", ErrInvalidJob, kind)
	}
	if fileID == "" {
		return fmt.Errorf("%w: %s job missing fileId", ErrInvalidJob, kind)
	}
	return nil
}

// NewJob builds the tagged variant for kind.
func NewJob(kind JobKind, userID, fileID string, enqueuedAt time.Time) (Job, error) {
	switch kind {
	case JobKindFetch:
		return FetchJob{UserID: userID, FileID: fileID, EnqueuedAt: enqueuedAt}, nil
	case JobKindVectorize:
		return VectorizeJob{UserID: userID, FileID: fileID, EnqueuedAt: enqueuedAt}, nil
	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", ErrInvalidJob, kind)
	}
}

// Delivery is one job handed to a consumer. A Delivery whose payload could
// not be decoded has a nil Job and a non-nil DecodeErr; it must still be
// acknowledged so it leaves the pending list.
type Delivery struct {
	// ID is the queue's message identifier.
	ID string

	// Kind is the stream the message came from.
	Kind JobKind

	Job       Job
	DecodeErr error

	// Attempts is the delivery count when the queue tracks it (reclaims).
	Attempts int64

	// Tag carries adapter-specific acknowledgement state.
	Tag any
}

// DelayedJob is a job to enqueue once DueAt has passed.
type DelayedJob struct {
	Kind   JobKind
	UserID string
	FileID string
	DueAt  time.Time
}

// Key parts escape "%" and ":" so ids containing the separator survive
// a round trip. Ids without either character are stored verbatim.
var (
	keyEscaper   = strings.NewReplacer("%", "%25", ":", "%3A")
	keyUnescaper = strings.NewReplacer("%3A", ":", "%25", "%")
)

// Key identifies the delayed job; scheduling the same key twice keeps the
// later deadline only.
func (d DelayedJob) Key() string {
	return string(d.Kind) + ":" + keyEscaper.Replace(d.UserID) + ":" + keyEscaper.Replace(d.FileID)
}

// ParseDelayedKey splits a Key back into its parts.
func ParseDelayedKey(key string) (DelayedJob, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return DelayedJob{}, fmt.Errorf("%w: malformed delayed job key %q", ErrInvalidInput, key)
	}
	kind, err := ParseJobKind(parts[0])
	if err != nil {
		return DelayedJob{}, err
	}
	return DelayedJob{
		Kind:   kind,
		UserID: keyUnescaper.Replace(parts[1]),
		FileID: keyUnescaper.Replace(parts[2]),
	}, nil
}
