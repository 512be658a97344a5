package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	reconcileDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vcluster_enroller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of enrollment reconciliations in seconds",
			// Enrollment is a handful of API calls; the tail covers slow API servers.
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"namespace", "instance"},
	)

	enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vcluster_enroller",
			Name:      "enrollments_total",
			Help:      "Total number of successful enroll and unenroll operations",
		},
		[]string{"action"},
	)

	enrollmentErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vcluster_enroller",
			Name:      "enrollment_errors_total",
			Help:      "Total number of failed enrollment operations by classification",
		},
		[]string{"action", "class"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		reconcileDurationHistogram,
		enrollmentsTotal,
		enrollmentErrorsTotal,
	)
}
