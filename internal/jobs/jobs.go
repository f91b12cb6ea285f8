package jobs

import (
	"context"
	"errors"
	"time"
)

// Job is a unit of in-process background work.
type Job struct {
	ID      int64     `json:"id"`
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	Created time.Time `json:"created"`
}

// Handler is the function that processes a job
type Handler func(ctx context.Context, j *Job) error

var (
	// ErrQueueFull is returned by Enqueue when the buffer has no free slot.
	ErrQueueFull = errors.New("job queue full")
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.New("worker pool stopped")
	// ErrNoHandler is returned by Enqueue for an unknown job type.
	ErrNoHandler = errors.New("no handler for job type")
)
