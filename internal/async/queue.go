package async

import (
	"context"
	"errors"
	"time"

	"github.com/mediway/labreports/internal/entity"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to run through the pipeline.
type Job struct {
	Path        string
	Hints       entity.Hints
	SubmittedAt time.Time
	TraceID     string
}

// Result reports the outcome of one job.
type Result struct {
	Job      Job
	ReportID string
	Err      error
	Elapsed  time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
