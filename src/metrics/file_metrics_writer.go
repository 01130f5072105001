package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

var csvHeaders = []string{"time", "source_type", "source", "name", "value"}

// FileMetricsWriter appends metrics to one file per source and day, in CSV or JSON lines.
type FileMetricsWriter struct {
	dateId     string
	baseDir    string
	files      map[string]*os.File
	csvWriters map[string]*csv.Writer
	fileFormat FileFormat
	mu         sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create metrics directory")
	}
	now := time.Now()
	todaysDateId := fmt.Sprintf("%d%02d%02d", now.Year(), now.Month(), now.Day())

	return &FileMetricsWriter{
		dateId:     todaysDateId,
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvWriters: make(map[string]*csv.Writer),
		fileFormat: format,
	}, nil
}

// Path is the file a source's metrics are written to.
func (w *FileMetricsWriter) Path(source string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s_%s.%s", w.dateId, source, w.fileFormat))
}

func (w *FileMetricsWriter) open(source string) (*os.File, error) {
	if f, ok := w.files[source]; ok {
		return f, nil
	}
	filename := w.Path(source)
	_, statErr := os.Stat(filename)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open metrics file")
	}
	w.files[source] = f
	if w.fileFormat == FormatCSV {
		csvWriter := csv.NewWriter(f)
		w.csvWriters[source] = csvWriter
		if isNew {
			if err := csvWriter.Write(csvHeaders); err != nil {
				return nil, errors.Wrap(err, "failed to write CSV headers")
			}
			csvWriter.Flush()
		}
	}
	return f, nil
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.open(metric.MetricSourceName)
	if err != nil {
		return err
	}

	switch w.fileFormat {
	case FormatJSON:
		jsonBytes, err := json.Marshal(metric)
		if err != nil {
			return errors.Wrap(err, "failed to marshal metric to JSON")
		}
		if _, err := file.Write(append(jsonBytes, '\n')); err != nil {
			return errors.Wrap(err, "failed to write JSON metrics")
		}
	case FormatCSV:
		csvWriter := w.csvWriters[metric.MetricSourceName]
		row := []string{
			metric.MetricTime.Format(time.RFC3339),
			string(metric.MetricSourceType),
			metric.MetricSourceName,
			metric.MetricName,
			strconv.FormatFloat(metric.MetricValue, 'f', -1, 64),
		}
		if err := csvWriter.Write(row); err != nil {
			return errors.Wrap(err, "failed to write CSV row")
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			return errors.Wrap(err, "error flushing CSV writer")
		}
	}

	return nil
}

func (w *FileMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error
	for source, file := range w.files {
		if writer := w.csvWriters[source]; writer != nil {
			writer.Flush()
			if err := writer.Error(); err != nil {
				slog.Error("Failed to flush CSV writer", "source", source, "error", err)
				lastErr = err
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "source", source, "error", err)
			lastErr = err
		}
		delete(w.files, source)
		delete(w.csvWriters, source)
	}
	return lastErr
}
