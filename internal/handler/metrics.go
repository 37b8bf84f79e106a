package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/skillswap/skillswap/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "skillswap_profiles_registered_total %d\n", snap.ProfilesRegistered)

	outcomes := make([]string, 0, len(snap.MatchSubmissions))
	for outcome := range snap.MatchSubmissions {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		writeMetric(w, "skillswap_match_submissions_total{outcome=%q} %d\n", outcome, snap.MatchSubmissions[outcome])
	}
	writeMetric(w, "skillswap_matches_returned_total %d\n", snap.MatchesReturned)
	writeMetric(w, "skillswap_empty_results_total %d\n", snap.EmptyResults)

	writeMetric(w, "skillswap_scoring_duration_seconds_count %d\n", snap.ScoringDurationCount)
	writeMetric(w, "skillswap_scoring_duration_seconds_sum %.6f\n", float64(snap.ScoringDurationTotalNs)/1e9)
	writeMetric(w, "skillswap_scoring_failures_total %d\n", snap.ScoringFailures)
	writeMetric(w, "skillswap_scoring_fallbacks_total %d\n", snap.ScoringFallbacks)

	writeMetric(w, "skillswap_notifications_total{status=\"sent\"} %d\n", snap.NotificationsSent)
	writeMetric(w, "skillswap_notifications_total{status=\"failed\"} %d\n", snap.NotificationsFailed)

	writeMetric(w, "skillswap_login_links_issued_total %d\n", snap.LoginLinksIssued)
	writeMetric(w, "skillswap_sessions_issued_total %d\n", snap.SessionsIssued)
	writeMetric(w, "skillswap_logins_rejected_total %d\n", snap.LoginsRejected)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
