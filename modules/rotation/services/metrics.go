package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "leads",
		Name:      "assignments_total",
		Help:      "Total number of leads assigned broken down by lane and mode (rotation, manual, replacement).",
	}, []string{"lane", "mode"})

	rotationCushionAbsorptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "cushion",
		Name:      "absorptions_total",
		Help:      "Total number of assignments absorbed by a cushion broken down by lane.",
	}, []string{"lane"})

	rotationWriteConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Total number of compare-and-swap conflicts broken down by kind and outcome.",
	}, []string{"kind", "outcome"})

	rotationLedgerRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "ledger",
		Name:      "append_retries_total",
		Help:      "Total number of retried hit ledger appends.",
	})

	rotationLedgerFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "ledger",
		Name:      "append_failures_total",
		Help:      "Total number of hit ledger appends abandoned after exhausting retries.",
	})

	rotationRejectedTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rotation",
		Subsystem: "replacement",
		Name:      "rejected_transitions_total",
		Help:      "Total number of replacement transitions rejected broken down by transition.",
	}, []string{"transition"})
)

func recordAssignment(lane, mode string) {
	rotationAssignments.WithLabelValues(lane, mode).Inc()
}

func recordCushionAbsorption(lane string) {
	rotationCushionAbsorptions.WithLabelValues(lane).Inc()
}

func recordWriteConflict(kind string, retried bool) {
	outcome := "surfaced"
	if retried {
		outcome = "retried"
	}
	rotationWriteConflicts.WithLabelValues(kind, outcome).Inc()
}

func recordRejectedTransition(transition string) {
	if transition == "" {
		transition = "other"
	}
	rotationRejectedTransitions.WithLabelValues(transition).Inc()
}
