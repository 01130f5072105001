package datamodels

import (
	"time"

	"github.com/gorilla/websocket"

	"motifcore/src/utils/errors"
	"motifcore/src/utils/general"
)

type MotifConfig struct {
	PublisherConfig PublisherConfig     `mapstructure:"publisher"`
	DatabaseConfig  PostgresConfig      `mapstructure:"postgres"`
	JournalConfig   JournalConfig       `mapstructure:"journal"`
	ServerConfig    ServerConfig        `mapstructure:"server"`
	MetricsWriter   MetricsWriterConfig `mapstructure:"metrics_writer"`
	// Subscriptions are request keys opened at start-up, e.g. "markets:ASX".
	Subscriptions []string `mapstructure:"subscriptions"`
}

type PostgresConfig struct {
	Database string `mapstructure:"database"`
	Host     string `mapstructure:"host"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`
	SSL      struct {
		CA   string `mapstructure:"ca"`
		Cert string `mapstructure:"cert"`
		Key  string `mapstructure:"key"`
		Mode string `mapstructure:"mode"`
	} `mapstructure:"ssl"`
	URI  string `mapstructure:"uri"`
	User string `mapstructure:"user"`
}

type PublisherConfig struct {
	Endpoints         []string      `mapstructure:"endpoints"`
	AuthToken         string        `mapstructure:"auth_token"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	CountersInterval  time.Duration `mapstructure:"counters_interval"`
}

type JournalConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Driver     string `mapstructure:"driver"` // postgres or sqlite
	SqlitePath string `mapstructure:"sqlite_path"`
	Notify     bool   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	MetricsEndpoint string `mapstructure:"metrics_endpoint"`
	HealthEndpoint  string `mapstructure:"health_endpoint"`
	StatusEndpoint  string `mapstructure:"status_endpoint"`
}

type WSConfig struct {
	Upgrader websocket.Upgrader
}

type MetricsWriterConfig struct {
	WsWriter         bool          `mapstructure:"ws_writer"`
	FileWriter       bool          `mapstructure:"file_writer"`
	PrometheusWriter bool          `mapstructure:"prometheus_writer"`
	DbWriter         bool          `mapstructure:"db_writer"` // needs the journal database
	FilePath         string        `mapstructure:"file_path"`
	Interval         time.Duration `mapstructure:"interval"`
}

const (
	JournalDriverPostgres = "postgres"
	JournalDriverSqlite   = "sqlite"
)

func (c *MotifConfig) Validate() error {
	if err := c.PublisherConfig.Validate(); err != nil {
		return errors.Wrap(err, "publisher")
	}
	if err := c.JournalConfig.Validate(); err != nil {
		return errors.Wrap(err, "journal")
	}
	if c.MetricsWriter.FileWriter && c.MetricsWriter.FilePath == "" {
		return errors.New("metrics_writer.file_path is required for the file writer")
	}
	if !general.NoDuplicateItemsInSlice(c.Subscriptions) {
		return errors.New("subscriptions must not repeat")
	}
	if c.MetricsWriter.DbWriter && !c.JournalConfig.Enabled {
		return errors.New("metrics_writer.db_writer needs the journal enabled")
	}
	if _, err := c.Requests(); err != nil {
		return errors.Wrap(err, "subscriptions")
	}
	return nil
}

// Requests parses the configured start-up subscriptions.
func (c *MotifConfig) Requests() ([]Request, error) {
	requests := make([]Request, 0, len(c.Subscriptions))
	for _, key := range c.Subscriptions {
		request, err := ParseRequest(key)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (p *PublisherConfig) Validate() error {
	if len(p.Endpoints) == 0 {
		return errors.New("at least one endpoint is required")
	}
	for _, endpoint := range p.Endpoints {
		if ok, reason := general.IsValidURL(endpoint, "ws", "wss"); !ok {
			return errors.Newf("endpoint %q: %s", endpoint, reason)
		}
	}
	if p.MaxReconnectDelay > 0 && p.MaxReconnectDelay < p.ReconnectDelay {
		return errors.New("max_reconnect_delay must not be less than reconnect_delay")
	}
	return nil
}

// WithDefaults fills unset timings with conservative values.
func (p PublisherConfig) WithDefaults() PublisherConfig {
	if p.ReconnectDelay <= 0 {
		p.ReconnectDelay = time.Second
	}
	if p.MaxReconnectDelay <= 0 {
		p.MaxReconnectDelay = 60 * time.Second
	}
	if p.ReadBufferSize <= 0 {
		p.ReadBufferSize = 32 * 1024
	}
	if p.PingInterval <= 0 {
		p.PingInterval = 20 * time.Second
	}
	if p.CountersInterval <= 0 {
		p.CountersInterval = 5 * time.Second
	}
	return p
}

func (j *JournalConfig) Validate() error {
	if !j.Enabled {
		return nil
	}
	switch j.Driver {
	case JournalDriverPostgres:
		return nil
	case JournalDriverSqlite:
		if j.SqlitePath == "" {
			return errors.New("sqlite_path is required for the sqlite driver")
		}
		return nil
	default:
		return errors.Newf("unknown driver %q", j.Driver)
	}
}
