package database

import (
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"strconv"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"motifcore/src/datamodels"
	"motifcore/src/utils/errors"
)

type MotifDatabase interface {
	JournalDatabase
	MetricsDatabase
	// Notifications is nil unless the database is postgres with notifications enabled.
	Notifications() *NotificationManager
	Close() error
}

type databaseImplementation struct {
	gormDb              *gorm.DB
	notificationManager *NotificationManager
	notify              bool
}

// NewDBConnection opens the postgres journal. With notify set, every journal
// row is also announced with pg_notify and a listener is started.
func NewDBConnection(dbConfig datamodels.PostgresConfig, notify bool) (MotifDatabase, error) {
	var err error

	dbConnString := MakeConnectionString(&dbConfig)

	gormConfig := &gorm.Config{
		Logger: slogGorm.New(),
	}

	gorm, err := gorm.Open(postgres.Open(dbConnString), gormConfig)
	if err != nil {
		return nil, errors.WrapE(err, errors.New("cannot create gorm engine"))
	}

	slog.Info("Connected to database", "host", dbConfig.Host, "database", dbConfig.Database, "user", dbConfig.User)

	db := &databaseImplementation{
		gormDb: gorm,
		notify: notify,
	}
	if notify {
		notifyManager, err := NewNotificationManager(dbConnString)
		if err != nil {
			return nil, errors.WrapE(err, errors.New("cannot create notify manager"))
		}
		db.notificationManager = notifyManager
	}
	return db, nil
}

// NewSqliteConnection opens a local journal and migrates its tables. Used for
// single-host runs and tests; it has no notifications.
func NewSqliteConnection(path string) (MotifDatabase, error) {
	gorm, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: slogGorm.New(),
	})
	if err != nil {
		return nil, errors.WrapE(err, errors.New("cannot open sqlite journal"))
	}
	if err := gorm.AutoMigrate(DbTables...); err != nil {
		return nil, errors.Wrap(err, "migrating sqlite journal")
	}
	slog.Info("Opened sqlite journal", "path", path)
	return &databaseImplementation{gormDb: gorm}, nil
}

// NewFromConfig opens the journal database the config asks for.
func NewFromConfig(config *datamodels.MotifConfig) (MotifDatabase, error) {
	switch config.JournalConfig.Driver {
	case datamodels.JournalDriverSqlite:
		return NewSqliteConnection(config.JournalConfig.SqlitePath)
	default:
		return NewDBConnection(config.DatabaseConfig, config.JournalConfig.Notify)
	}
}

func (d *databaseImplementation) Notifications() *NotificationManager {
	return d.notificationManager
}

func (d *databaseImplementation) Close() error {
	if d.notificationManager != nil {
		if err := d.notificationManager.Close(); err != nil {
			slog.Warn("Closing notification listener failed", "error", err)
		}
	}
	sqlDb, err := d.gormDb.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

func MakeConnectionString(dbConfig *datamodels.PostgresConfig) string {
	if dbConfig.URI != "" { // If url is provided, use it
		return dbConfig.URI
	}

	ssl := "sslmode=" + dbConfig.SSL.Mode

	if dbConfig.SSL.Mode != "disable" {
		sslFiles := map[string]string{
			"sslcert":     dbConfig.SSL.Cert,
			"sslkey":      dbConfig.SSL.Key,
			"sslrootcert": dbConfig.SSL.CA,
		}

		for param, content := range sslFiles {
			if content != "" {
				file, err := writeCertificate(content, param+".pem")
				if err != nil {
					slog.Error("Error writing " + param + " to file: " + err.Error())
				}

				ssl += "&" + param + "=" + file
			}
		}
	}

	hostPort := net.JoinHostPort(dbConfig.Host, strconv.Itoa(dbConfig.Port))

	if dbConfig.Password == "" {
		slog.Warn("No password provided for database connection, using empty password")
		return fmt.Sprintf("postgres://%s@%s/%s?search_path=public&%s",
			dbConfig.User,
			hostPort,
			dbConfig.Database,
			ssl,
		)
	}

	return fmt.Sprintf("postgres://%s:%s@%s/%s?search_path=public&%s",
		dbConfig.User,
		dbConfig.Password,
		hostPort,
		dbConfig.Database,
		ssl,
	)
}

func writeCertificate(content string, outFile string) (string, error) {
	tempFile, err := os.CreateTemp("", outFile)
	if err != nil {
		return "", err
	}

	_, err = tempFile.WriteString(content)
	if err != nil {
		tempFile.Close()

		return "", err
	}

	err = tempFile.Close()
	if err != nil {
		log.Printf("Error closing %s: %v\n", outFile, err)
	}

	return tempFile.Name(), nil
}
