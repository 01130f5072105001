package metrics

import (
	"context"

	"motifcore/src/database"
	"motifcore/src/datamodels"
)

// DBMetricsWriter stores metric samples in the journal database.
type DBMetricsWriter struct {
	db database.MetricsDatabase
}

func NewDBMetricsWriter(db database.MetricsDatabase) *DBMetricsWriter {
	return &DBMetricsWriter{
		db: db,
	}
}

func (w *DBMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	_, err := w.db.WriteNewMetric(ctx, metric)
	return err
}

func (w *DBMetricsWriter) Close() error {
	return nil
}
