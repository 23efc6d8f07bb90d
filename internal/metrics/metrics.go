// Package metrics exposes Prometheus collectors for unit of work activity.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ontomap"

// Commit outcomes used as the status label.
const (
	StatusCommitted  = "committed"
	StatusInvalid    = "invalid"
	StatusUnresolved = "unresolved"
	StatusFailed     = "failed"
)

// Metrics holds the session collectors.
type Metrics struct {
	commits              *prometheus.CounterVec // By status
	commitDuration       prometheus.Histogram
	changeRecords        *prometheus.CounterVec // By entity type
	validationFailures   *prometheus.CounterVec // By entity type
	entitiesLoaded       *prometheus.CounterVec // By entity type
	unpersistedReference prometheus.Counter
}

// New creates and registers the collectors with reg. A nil reg disables
// metrics and returns a nil *Metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commits_total",
			Help:      "Total number of unit of work commits",
		}, []string{"status"}), // status: committed, invalid, unresolved, failed

		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commit_duration_seconds",
			Help:      "Commit duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		changeRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "change_records_total",
			Help:      "Total number of attribute changes written on commit",
		}, []string{"entity"}),

		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "validation_failures_total",
			Help:      "Total number of integrity constraint violations",
		}, []string{"entity"}),

		entitiesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "entities_loaded_total",
			Help:      "Total number of entities registered from the store",
		}, []string{"entity"}),

		unpersistedReference: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "unpersisted_references_total",
			Help:      "Total number of references left unpersisted at commit",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.commits, m.commitDuration, m.changeRecords,
		m.validationFailures, m.entitiesLoaded, m.unpersistedReference,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordCommit records a finished commit.
func (m *Metrics) RecordCommit(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(status).Inc()
	m.commitDuration.Observe(duration.Seconds())
}

// RecordChanges records n attribute changes of an entity type.
func (m *Metrics) RecordChanges(entity string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.changeRecords.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) RecordValidationFailure(entity string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(entity).Inc()
}

func (m *Metrics) RecordLoad(entity string) {
	if m == nil {
		return
	}
	m.entitiesLoaded.WithLabelValues(entity).Inc()
}

// RecordUnpersisted records n references found by the pending sweep.
func (m *Metrics) RecordUnpersisted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.unpersistedReference.Add(float64(n))
}
