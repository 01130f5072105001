package metrics

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"motifcore/src/datamodels"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	Write(ctx context.Context, metric datamodels.Metric) error
	Close() error
}

// BuildMetricsWriter assembles the writers enabled in config. Prometheus
// collectors are registered with registerer.
func BuildMetricsWriter(config *datamodels.MetricsWriterConfig, registerer prometheus.Registerer) (*MultiMetricsWriter, error) {
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, skipping metrics writer")
		return NewMultiMetricsWriter(), nil
	}
	writers := []MetricsWriter{}
	if config.WsWriter {
		writers = append(writers, NewWebSocketMetricsWriter())
	}
	if config.FileWriter {
		metricsWriter, err := NewFileMetricsWriter(config.FilePath, FormatCSV)
		if err != nil {
			return nil, err
		}
		writers = append(writers, metricsWriter)
	}
	if config.PrometheusWriter {
		promWriter, err := NewPrometheusMetricsWriter(registerer)
		if err != nil {
			return nil, err
		}
		writers = append(writers, promWriter)
	}
	return NewMultiMetricsWriter(writers...), nil
}
