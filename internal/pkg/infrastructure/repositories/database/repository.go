package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/logging"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectorConfig struct {
	Host     string
	Username string
	DbName   string
	Password string
	SslMode  string
}

func LoadConfigFromEnv() ConnectorConfig {
	sslMode := os.Getenv("POSTGRES_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	return ConnectorConfig{
		Host:     os.Getenv("POSTGRES_HOST"),
		Username: os.Getenv("POSTGRES_USER"),
		DbName:   os.Getenv("POSTGRES_DBNAME"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		SslMode:  sslMode,
	}
}

// ConnectorFunc returns a database handle. Each repository calls it once and migrates its own models.
type ConnectorFunc func() (*gorm.DB, zerolog.Logger, error)

// NewSQLiteConnector returns a connector to a private in-memory database. All repositories
// created from the same connector share the same database.
func NewSQLiteConnector(ctx context.Context) ConnectorFunc {
	log := logging.GetLoggerFromContext(ctx)

	var db *gorm.DB

	return func() (*gorm.DB, zerolog.Logger, error) {
		if db != nil {
			return db, log, nil
		}

		impl, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
			Logger:          logger.Default.LogMode(logger.Silent),
			CreateBatchSize: 1000,
		})
		if err != nil {
			return nil, log, err
		}

		impl.Exec("PRAGMA foreign_keys = ON")
		sqldb, _ := impl.DB()
		sqldb.SetMaxOpenConns(1)

		db = impl

		return db, log, nil
	}
}

func NewPostgreSQLConnector(ctx context.Context, cfg ConnectorConfig) ConnectorFunc {
	dbURI := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=%s password=%s", cfg.Host, cfg.Username, cfg.DbName, cfg.SslMode, cfg.Password)

	log := logging.GetLoggerFromContext(ctx)

	var db *gorm.DB

	return func() (*gorm.DB, zerolog.Logger, error) {
		if db != nil {
			return db, log, nil
		}

		sublogger := log.With().Str("host", cfg.Host).Str("database", cfg.DbName).Logger()

		for attempt := 1; ; attempt++ {
			sublogger.Info().Msg("connecting to database host")

			impl, err := gorm.Open(postgres.Open(dbURI), &gorm.Config{
				Logger: logger.New(
					&logadapter{logger: sublogger},
					logger.Config{
						SlowThreshold:             time.Second,
						LogLevel:                  logger.Warn,
						IgnoreRecordNotFoundError: true,
						Colorful:                  false,
					},
				),
			})
			if err != nil {
				if attempt >= 5 {
					return nil, sublogger, fmt.Errorf("failed to connect to database: %w", err)
				}

				sublogger.Error().Err(err).Msg("failed to connect to database")
				time.Sleep(3 * time.Second)
				continue
			}

			db = impl
			return db, sublogger, nil
		}
	}
}

// logadapter provides a Printf interface to the gorm logger
// so that we can forward the log data to zerolog
type logadapter struct {
	logger zerolog.Logger
}

func (adapter *logadapter) Printf(format string, args ...interface{}) {
	adapter.logger.Info().Msgf(format, args...)
}
