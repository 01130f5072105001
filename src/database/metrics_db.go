package database

import (
	"context"
	"time"

	"motifcore/src/datamodels"
)

type MetricsDatabase interface {
	WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error)
	GetMetrics(ctx context.Context, source string, since time.Time, limit int) ([]datamodels.Metric, error)
}

func (d *databaseImplementation) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	tx := d.gormDb.WithContext(ctx).Create(&metric)
	return tx.RowsAffected, tx.Error
}

func (d *databaseImplementation) GetMetrics(ctx context.Context, source string, since time.Time, limit int) ([]datamodels.Metric, error) {
	var metrics []datamodels.Metric
	err := d.gormDb.WithContext(ctx).
		Where("metric_source_name = ? AND metric_time >= ?", source, since).
		Order("metric_time DESC").Limit(limit).Find(&metrics).Error
	return metrics, err
}
