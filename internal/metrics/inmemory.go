package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ProfilesRegistered uint64

	MatchSubmissions map[string]uint64 // by outcome
	MatchesReturned  uint64
	EmptyResults     uint64

	ScoringDurationCount   uint64
	ScoringDurationTotalNs int64
	ScoringFailures        uint64
	ScoringFallbacks       uint64

	NotificationsSent   uint64
	NotificationsFailed uint64

	LoginLinksIssued uint64
	SessionsIssued   uint64
	LoginsRejected   uint64
}

// InMemoryRecorder stores metrics in memory. It backs /metrics and tests.
type InMemoryRecorder struct {
	profilesRegistered uint64

	submitSuccess    uint64
	submitValidation uint64
	submitStore      uint64
	submitScoring    uint64
	submitDelivery   uint64
	matchesReturned  uint64
	emptyResults     uint64

	scoringDurationCount   uint64
	scoringDurationTotalNs int64
	scoringFailures        uint64
	scoringFallbacks       uint64

	notificationsSent   uint64
	notificationsFailed uint64

	loginLinksIssued uint64
	sessionsIssued   uint64
	loginsRejected   uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ProfilesRegistered: atomic.LoadUint64(&m.profilesRegistered),
		MatchSubmissions: map[string]uint64{
			OutcomeSuccess:         atomic.LoadUint64(&m.submitSuccess),
			OutcomeValidationError: atomic.LoadUint64(&m.submitValidation),
			OutcomeStoreError:      atomic.LoadUint64(&m.submitStore),
			OutcomeScoringError:    atomic.LoadUint64(&m.submitScoring),
			OutcomeDeliveryError:   atomic.LoadUint64(&m.submitDelivery),
		},
		MatchesReturned:        atomic.LoadUint64(&m.matchesReturned),
		EmptyResults:           atomic.LoadUint64(&m.emptyResults),
		ScoringDurationCount:   atomic.LoadUint64(&m.scoringDurationCount),
		ScoringDurationTotalNs: atomic.LoadInt64(&m.scoringDurationTotalNs),
		ScoringFailures:        atomic.LoadUint64(&m.scoringFailures),
		ScoringFallbacks:       atomic.LoadUint64(&m.scoringFallbacks),
		NotificationsSent:      atomic.LoadUint64(&m.notificationsSent),
		NotificationsFailed:    atomic.LoadUint64(&m.notificationsFailed),
		LoginLinksIssued:       atomic.LoadUint64(&m.loginLinksIssued),
		SessionsIssued:         atomic.LoadUint64(&m.sessionsIssued),
		LoginsRejected:         atomic.LoadUint64(&m.loginsRejected),
	}
}

// IncProfileRegistered increments the intake counter.
func (m *InMemoryRecorder) IncProfileRegistered() {
	atomic.AddUint64(&m.profilesRegistered, 1)
}

// IncMatchSubmission counts a finished pipeline run by outcome.
// Unknown outcomes are ignored.
func (m *InMemoryRecorder) IncMatchSubmission(outcome string) {
	switch outcome {
	case OutcomeSuccess:
		atomic.AddUint64(&m.submitSuccess, 1)
	case OutcomeValidationError:
		atomic.AddUint64(&m.submitValidation, 1)
	case OutcomeStoreError:
		atomic.AddUint64(&m.submitStore, 1)
	case OutcomeScoringError:
		atomic.AddUint64(&m.submitScoring, 1)
	case OutcomeDeliveryError:
		atomic.AddUint64(&m.submitDelivery, 1)
	}
}

// ObserveMatchCount records the size of a proposed shortlist.
func (m *InMemoryRecorder) ObserveMatchCount(n int) {
	if n == 0 {
		atomic.AddUint64(&m.emptyResults, 1)
		return
	}
	atomic.AddUint64(&m.matchesReturned, uint64(n))
}

// ObserveScoringDuration records one backend call.
func (m *InMemoryRecorder) ObserveScoringDuration(duration time.Duration) {
	atomic.AddUint64(&m.scoringDurationCount, 1)
	atomic.AddInt64(&m.scoringDurationTotalNs, duration.Nanoseconds())
}

// IncScoringFailure increments the backend failure counter.
func (m *InMemoryRecorder) IncScoringFailure() {
	atomic.AddUint64(&m.scoringFailures, 1)
}

// IncScoringFallback increments the fallback counter.
func (m *InMemoryRecorder) IncScoringFallback() {
	atomic.AddUint64(&m.scoringFallbacks, 1)
}

// IncNotification counts a dispatch attempt by status.
func (m *InMemoryRecorder) IncNotification(status string) {
	switch status {
	case NotificationSent:
		atomic.AddUint64(&m.notificationsSent, 1)
	case NotificationFailed:
		atomic.AddUint64(&m.notificationsFailed, 1)
	}
}

// IncLoginLinkIssued increments the sign-in link counter.
func (m *InMemoryRecorder) IncLoginLinkIssued() {
	atomic.AddUint64(&m.loginLinksIssued, 1)
}

// IncSessionIssued increments the session counter.
func (m *InMemoryRecorder) IncSessionIssued() {
	atomic.AddUint64(&m.sessionsIssued, 1)
}

// IncLoginRejected counts sign-in tokens that were expired, reused or wrong.
func (m *InMemoryRecorder) IncLoginRejected() {
	atomic.AddUint64(&m.loginsRejected, 1)
}
