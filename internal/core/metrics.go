package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the import pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Finished jobs by type and terminal status
	JobsTotal *prometheus.CounterVec

	// Rows by outcome: success, error
	RowsTotal *prometheus.CounterVec

	// Validation issues by field and severity
	IssuesTotal *prometheus.CounterVec

	// Duplicate candidates by match type
	DuplicatesTotal *prometheus.CounterVec

	// Job run latency by type
	JobDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the pipeline metrics with reg.
// A nil registerer uses the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provimport_jobs_total",
			Help: "Import jobs finished by type and status",
		}, []string{"type", "status"}),

		RowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provimport_rows_total",
			Help: "Rows processed by outcome",
		}, []string{"outcome"}), // outcome: "success", "error"

		IssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provimport_validation_issues_total",
			Help: "Validation errors and warnings by field and severity",
		}, []string{"field", "severity"}),

		DuplicatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "provimport_duplicate_candidates_total",
			Help: "Duplicate candidates found by match type",
		}, []string{"match_type"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provimport_job_duration_seconds",
			Help:    "Duration of import job runs",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"type"}),
	}
}

// ObserveJob records a finished job.
func (m *Metrics) ObserveJob(job *ImportJob, d time.Duration) {
	if m != nil {
		m.JobsTotal.WithLabelValues(string(job.Type), string(job.Status)).Inc()
		m.JobDuration.WithLabelValues(string(job.Type)).Observe(d.Seconds())
	}
}

// IncrementRow records one processed row.
func (m *Metrics) IncrementRow(success bool) {
	if m != nil {
		outcome := "error"
		if success {
			outcome = "success"
		}
		m.RowsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncrementIssue records one validation error or warning.
func (m *Metrics) IncrementIssue(ve ValidationError) {
	if m != nil {
		m.IssuesTotal.WithLabelValues(ve.Field, string(ve.Severity)).Inc()
	}
}

// IncrementDuplicates records the candidates found for one row.
func (m *Metrics) IncrementDuplicates(candidates []DuplicateCandidate) {
	if m != nil {
		for _, c := range candidates {
			m.DuplicatesTotal.WithLabelValues(string(c.MatchType)).Inc()
		}
	}
}
