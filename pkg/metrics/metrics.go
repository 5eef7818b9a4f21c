package metrics

import "github.com/prometheus/client_golang/prometheus"

const Namespace = "rrsets"

// Registerer is where every metric created by this package is registered.
var Registerer prometheus.Registerer = prometheus.DefaultRegisterer

func register[C prometheus.Collector](c C) C {
	Registerer.MustRegister(c)
	return c
}

func NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewCounter(opts))
}

func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewCounterVec(opts, labelNames))
}

func NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewGauge(opts))
}

func NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewGaugeVec(opts, labelNames))
}

func NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewHistogram(opts))
}
