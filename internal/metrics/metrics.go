// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Match submission outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeStoreError      = "store_error"
	OutcomeScoringError    = "scoring_error"
	OutcomeDeliveryError   = "delivery_error"
)

// Notification statuses.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Intake
	IncProfileRegistered()

	// Match pipeline
	IncMatchSubmission(outcome string)
	ObserveMatchCount(n int)

	// Scoring backend
	ObserveScoringDuration(duration time.Duration)
	IncScoringFailure()
	IncScoringFallback()

	// Notification dispatch
	IncNotification(status string)

	// Sign-in
	IncLoginLinkIssued()
	IncSessionIssued()
	IncLoginRejected()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
