package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
	"motifcore/src/utils/general"
)

// Load reads the config file named by CONFIG_PATH, or config.local.yaml at the
// repo root. MOTIF_* environment variables override file values, e.g.
// MOTIF_PUBLISHER_AUTH_TOKEN.
func Load() (*datamodels.MotifConfig, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		// GetCurrentDir is src; config lives beside it
		configPath = filepath.Join(general.GetCurrentDir(), "..", "config.local.yaml")
	}
	return LoadFile(configPath)
}

func LoadFile(configPath string) (*datamodels.MotifConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("MOTIF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config %s", configPath)
	}

	var motifConfig datamodels.MotifConfig
	if err := v.Unmarshal(&motifConfig); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	motifConfig.PublisherConfig = motifConfig.PublisherConfig.WithDefaults()

	if err := motifConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &motifConfig, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("publisher.auth_token", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.metrics_endpoint", "/metrics")
	v.SetDefault("server.health_endpoint", "/health")
	v.SetDefault("server.status_endpoint", "/status")
	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.driver", datamodels.JournalDriverSqlite)
	v.SetDefault("metrics_writer.interval", "10s")
}
