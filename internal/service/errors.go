package service

import (
	"errors"
	"fmt"
)

// Pipeline error kinds. Match them with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrStore          = errors.New("profile store unavailable")
	ErrScoringBackend = errors.New("scoring backend failed")
	ErrDelivery       = errors.New("notification delivery failed")
)

// Stage names a step of the match pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageIntake  Stage = "intake"
	StageFetch   Stage = "fetch"
	StagePropose Stage = "propose"
	StageNotify  Stage = "notify"
)

// StageError is returned by every pipeline failure. errors.As recovers the
// stage; errors.Is matches both the kind and the wrapped cause.
type StageError struct {
	Stage Stage
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether resubmitting the same request may succeed.
// Store and scoring failures are transient; a failed delivery is not
// retried because the intake row already exists.
func (e *StageError) Retryable() bool {
	return e.Kind == ErrStore || e.Kind == ErrScoringBackend
}

func stageError(stage Stage, kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// StageOf returns the failed stage of err, or "" when err is not a StageError.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
