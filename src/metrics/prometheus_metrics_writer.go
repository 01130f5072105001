package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
)

// PrometheusMetricsWriter mirrors the latest value of every metric into a gauge.
type PrometheusMetricsWriter struct {
	values     *prometheus.GaugeVec
	samples    *prometheus.CounterVec
	registerer prometheus.Registerer
}

func NewPrometheusMetricsWriter(registerer prometheus.Registerer) (*PrometheusMetricsWriter, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	w := &PrometheusMetricsWriter{
		values: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "motifcore",
			Name:      "metric_value",
			Help:      "Latest value of a node or connection metric.",
		}, []string{"source_type", "source", "name"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "motifcore",
			Name:      "metric_samples_total",
			Help:      "Metric samples written per source type.",
		}, []string{"source_type"}),
		registerer: registerer,
	}
	if err := registerer.Register(w.values); err != nil {
		return nil, errors.Wrap(err, "registering metric gauge")
	}
	if err := registerer.Register(w.samples); err != nil {
		registerer.Unregister(w.values)
		return nil, errors.Wrap(err, "registering sample counter")
	}
	return w, nil
}

func (w *PrometheusMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.values.WithLabelValues(string(metric.MetricSourceType), metric.MetricSourceName, metric.MetricName).Set(metric.MetricValue)
	w.samples.WithLabelValues(string(metric.MetricSourceType)).Inc()
	return nil
}

func (w *PrometheusMetricsWriter) Close() error {
	w.registerer.Unregister(w.values)
	w.registerer.Unregister(w.samples)
	return nil
}
