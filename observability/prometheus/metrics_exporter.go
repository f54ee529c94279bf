package prometheus

import (
	"errors"
	"fmt"

	"github.com/gofibre/runtime/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.RuntimeMetrics to Prometheus collectors, so a
// Scheduler or ThreadPool's resume/expire/exception/move activity surfaces
// on a /metrics endpoint without core importing Prometheus itself.
type MetricsExporter struct {
	resumeDurationSeconds *prom.HistogramVec
	expireTotal           *prom.CounterVec
	exceptionTotal        *prom.CounterVec
	moveTotal             *prom.CounterVec
	queueDepth            *prom.GaugeVec
}

var _ core.RuntimeMetrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for a
// core.RuntimeMetrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fibre"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	resumeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "resume_duration_seconds",
		Help:      "Fibre resumption duration in seconds.",
		Buckets:   buckets,
	}, []string{"driver", "priority"})
	expireVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "expire_total",
		Help:      "Total number of fibres that finished, were cancelled, or moved.",
	}, []string{"driver", "priority"})
	exceptionVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "exception_total",
		Help:      "Total number of uncaught fibre exceptions.",
	}, []string{"driver", "priority"})
	moveVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "move_total",
		Help:      "Total number of cross-driver fibre migrations, by outcome.",
	}, []string{"driver", "outcome"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current fibre count per priority queue.",
	}, []string{"driver", "priority"})

	var err error
	if resumeVec, err = registerCollector(reg, resumeVec); err != nil {
		return nil, err
	}
	if expireVec, err = registerCollector(reg, expireVec); err != nil {
		return nil, err
	}
	if exceptionVec, err = registerCollector(reg, exceptionVec); err != nil {
		return nil, err
	}
	if moveVec, err = registerCollector(reg, moveVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		resumeDurationSeconds: resumeVec,
		expireTotal:           expireVec,
		exceptionTotal:        exceptionVec,
		moveTotal:             moveVec,
		queueDepth:            queueDepthVec,
	}, nil
}

// RecordResume implements core.RuntimeMetrics.
func (m *MetricsExporter) RecordResume(driverName string, priority int32, dur float64) {
	if m == nil {
		return
	}
	m.resumeDurationSeconds.WithLabelValues(normalizeLabel(driverName, "unknown"), priorityLabel(priority)).Observe(dur)
}

// RecordExpire implements core.RuntimeMetrics.
func (m *MetricsExporter) RecordExpire(driverName string, priority int32) {
	if m == nil {
		return
	}
	m.expireTotal.WithLabelValues(normalizeLabel(driverName, "unknown"), priorityLabel(priority)).Inc()
}

// RecordException implements core.RuntimeMetrics.
func (m *MetricsExporter) RecordException(driverName string, priority int32) {
	if m == nil {
		return
	}
	m.exceptionTotal.WithLabelValues(normalizeLabel(driverName, "unknown"), priorityLabel(priority)).Inc()
}

// RecordMove implements core.RuntimeMetrics.
func (m *MetricsExporter) RecordMove(driverName string, ok bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if ok {
		outcome = "accepted"
	}
	m.moveTotal.WithLabelValues(normalizeLabel(driverName, "unknown"), outcome).Inc()
}

// RecordQueueDepth implements core.RuntimeMetrics.
func (m *MetricsExporter) RecordQueueDepth(driverName string, priority int32, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(driverName, "unknown"), priorityLabel(priority)).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func priorityLabel(priority int32) string {
	return fmt.Sprintf("%d", priority)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
