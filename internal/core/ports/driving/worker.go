package driving

import (
	"context"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// Stage advances one file through one pipeline step.
type Stage interface {
	// Kind is the job kind the stage consumes.
	Kind() domain.JobKind

	// Process handles a validated job. A returned error means the job could
	// not even be resolved to a file state update; classified stage failures
	// are handled internally and return nil.
	Process(ctx context.Context, job domain.Job) error
}

// Runner is a long-running background loop (worker, scheduler).
type Runner interface {
	// Run blocks until ctx is cancelled.
	Run(ctx context.Context) error
}
