package stage

import (
	"errors"

	"briefcast/internal/services"
)

// Outcome classifies a processed job.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is what a processor returns for one job.
type Result struct {
	Job     Job
	Outcome Outcome
	Err     error
	// Commit asks the coordinator to persist Job even though the outcome is
	// not a success.
	Commit bool
}

// Success carries the updated job to be persisted.
func Success(job Job) Result {
	return Result{Job: job, Outcome: OutcomeSucceeded, Commit: true}
}

// Failure reports a failed attempt. The entry stays at its stage and is
// retried on the next run.
func Failure(job Job, err error) Result {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return Result{Job: job, Outcome: OutcomeFailed, Err: err}
}

// FailureWithState reports a failed attempt whose job still carries
// diagnostic state (for example download_error) that must be persisted.
func FailureWithState(job Job, err error) Result {
	r := Failure(job, err)
	r.Commit = true
	return r
}

// Skipped reports a job that was deliberately left untouched this run.
func Skipped(job Job, reason string) Result {
	return Result{Job: job, Outcome: OutcomeSkipped, Err: errors.New(reason)}
}

// OK reports whether the job succeeded.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSucceeded
}

// Reason renders the failure in "Kind: message" form, or "" on success.
func (r Result) Reason() string {
	switch r.Outcome {
	case OutcomeSucceeded:
		return ""
	case OutcomeSkipped:
		return r.Err.Error()
	default:
		return services.Describe(r.Err)
	}
}
