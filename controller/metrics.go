package controller

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapslaj/rrsets/pkg/metrics"
)

const MetricSubsystem = "controller"

var (
	// No Subsystem.
	MetricProviderUp = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provider_up",
			Help: "Whether the last walk of the provider succeeded.",
		},
		[]string{"provider"},
	)
	MetricZones = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "zones",
			Help: "Zones listed by the provider in the last walk.",
		},
		[]string{"provider"},
	)
	MetricRecordSets = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "record_sets",
			Help: "Record sets found in the zone in the last walk.",
		},
		[]string{"provider", "zone"},
	)
	// Controller Subsystem.
	MetricRuns = metrics.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: MetricSubsystem,
			Name:      "runs",
		},
		[]string{"status"},
	)
	MetricLastRunTimestamp = metrics.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: MetricSubsystem,
			Name:      "last_run_timestamp",
		},
	)
	MetricLastRunDurationSeconds = metrics.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: MetricSubsystem,
			Name:      "last_run_duration_seconds",
		},
	)
	MetricRunDurationSeconds = metrics.NewHistogram(
		prometheus.HistogramOpts{
			Subsystem: MetricSubsystem,
			Name:      "run_duration_seconds",
		},
	)
)
