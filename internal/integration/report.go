package integration

import (
	"errors"
	"fmt"
)

// ErrSideEffect marks every captured external-call failure so callers can
// distinguish them from local validation or state errors.
var ErrSideEffect = errors.New("external side effect failed")

// Failure records one failed channel call.
type Failure struct {
	Op  string
	Ref string
	Err error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s %s: %v: %s", f.Op, f.Ref, ErrSideEffect, f.Err)
}

// Unwrap exposes ErrSideEffect for errors.Is.
func (f Failure) Unwrap() error {
	return ErrSideEffect
}

// Report collects the side-effect failures of one workflow operation. The
// local transition succeeds regardless; the report travels back with the
// result so the caller can retry or alert an operator.
type Report struct {
	failures []Failure
}

// Record captures a failed call. A nil err records nothing.
func (r *Report) Record(op, ref string, err error) {
	if err == nil {
		return
	}
	r.failures = append(r.failures, Failure{Op: op, Ref: ref, Err: err})
}

// Failures returns the captured failures in call order.
func (r *Report) Failures() []Failure {
	if r == nil {
		return nil
	}
	return r.failures
}

// Empty reports whether every external call succeeded.
func (r *Report) Empty() bool {
	return r == nil || len(r.failures) == 0
}
