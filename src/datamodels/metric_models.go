package datamodels

import (
	"time"
)

type MetricSourceType string

const (
	MetricSourceConnection MetricSourceType = "connection"
	MetricSourceNode       MetricSourceType = "node"
)

// Metric is one scalar sample. Snapshots are taken together and share MetricTime.
type Metric struct {
	BaseModel
	MetricSourceName string           `gorm:"not null;index" json:"source"`
	MetricSourceType MetricSourceType `gorm:"not null;index" json:"source_type"`
	MetricTime       time.Time        `gorm:"not null;index" json:"time"`
	MetricName       string           `gorm:"not null;index" json:"name"`
	MetricValue      float64          `gorm:"not null" json:"value"`
}
