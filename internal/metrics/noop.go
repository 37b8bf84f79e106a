package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncProfileRegistered() {}
func (n *NoopRecorder) IncMatchSubmission(outcome string) {}
func (n *NoopRecorder) ObserveMatchCount(count int) {}
func (n *NoopRecorder) ObserveScoringDuration(duration time.Duration) {}
func (n *NoopRecorder) IncScoringFailure() {}
func (n *NoopRecorder) IncScoringFallback() {}
func (n *NoopRecorder) IncNotification(status string) {}
func (n *NoopRecorder) IncLoginLinkIssued() {}
func (n *NoopRecorder) IncSessionIssued() {}
func (n *NoopRecorder) IncLoginRejected() {}
