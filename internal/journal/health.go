package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// HealthStatus represents the health of the upstream integration
type HealthStatus string

const (
	// HealthHealthy means nearly every recent call reached Trakt successfully
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means a noticeable share of recent calls failed upstream
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy means most recent calls failed upstream
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Success-rate thresholds, in percent.
const (
	healthyThreshold  = 95.0
	degradedThreshold = 50.0
)

// Caller faults do not count against upstream health.
var callerFaultKinds = map[string]bool{
	"ValidationError":       true,
	"ResourceNotFoundError": true,
}

// HealthReport summarises a window of journaled invocations.
type HealthReport struct {
	Status        HealthStatus       `json:"status"`
	Timestamp     time.Time          `json:"timestamp"`
	Calls         map[string]int64   `json:"calls"`
	Failures      map[string]int64   `json:"failures"`
	ResponseTimes map[string]float64 `json:"response_times_ms"`
	SuccessRate   float64            `json:"success_rate"`
	TotalRequests int64              `json:"total_requests"`
	LastFailure   *time.Time         `json:"last_failure,omitempty"`
	Version       string             `json:"version"`
}

// BuildHealthReport derives a report from invocations. Calls and average
// response times are keyed by tool, failures by error kind.
func BuildHealthReport(invocations []Invocation, version string, now time.Time) *HealthReport {
	report := &HealthReport{
		Status:        HealthHealthy,
		Timestamp:     now,
		Calls:         map[string]int64{},
		Failures:      map[string]int64{},
		ResponseTimes: map[string]float64{},
		Version:       version,
	}

	totals := map[string]time.Duration{}
	var counted, succeeded int64
	var total time.Duration

	for _, inv := range invocations {
		report.Calls[inv.Tool]++
		totals[inv.Tool] += inv.Duration
		total += inv.Duration

		if inv.Status == StatusError {
			report.Failures[inv.Kind]++
			if report.LastFailure == nil || inv.StartedAt.After(*report.LastFailure) {
				at := inv.StartedAt
				report.LastFailure = &at
			}
			if callerFaultKinds[inv.Kind] {
				continue
			}
		} else {
			succeeded++
		}
		counted++
	}

	report.TotalRequests = int64(len(invocations))
	for tool, d := range totals {
		report.ResponseTimes[tool] = millis(d) / float64(report.Calls[tool])
	}
	if len(invocations) > 0 {
		report.ResponseTimes["total"] = millis(total) / float64(len(invocations))
	}

	if counted > 0 {
		report.SuccessRate = float64(succeeded) / float64(counted) * 100.0
		switch {
		case report.SuccessRate < degradedThreshold:
			report.Status = HealthUnhealthy
		case report.SuccessRate < healthyThreshold:
			report.Status = HealthDegraded
		}
	} else {
		report.SuccessRate = 100.0
	}
	return report
}

// JSON renders the report as indented JSON.
func (r *HealthReport) JSON() (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal health report: %w", err)
	}
	return string(b), nil
}

// FailingKinds returns the failure kinds, most frequent first.
func (r *HealthReport) FailingKinds() []string {
	kinds := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if r.Failures[kinds[i]] != r.Failures[kinds[j]] {
			return r.Failures[kinds[i]] > r.Failures[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
