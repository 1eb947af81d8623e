package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fooddelivery/pkg/config"
	"fooddelivery/pkg/models"
)

// Open connects to the configured database, retrying while it comes up,
// and tunes the connection pool.
func Open(conf config.Database, log logrus.FieldLogger) (*gorm.DB, error) {
	dialector, err := dialectorFor(conf)
	if err != nil {
		return nil, err
	}

	gormConf := &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	retries := conf.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var db *gorm.DB
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(dialector, gormConf)
		if err == nil {
			break
		}
		log.Warnf("Database connection attempt %d/%d failed: %v", i+1, retries, err)
		if i < retries-1 {
			time.Sleep(conf.ConnectDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", conf.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}

	if isMemory(conf) {
		// Every connection to an in-memory sqlite database sees its own
		// empty database, so keep exactly one.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithField("driver", conf.Driver).Info("Database connection established successfully")
	return db, nil
}

func dialectorFor(conf config.Database) (gorm.Dialector, error) {
	switch conf.Driver {
	case "postgres":
		return postgres.Open(conf.PostgresDSN()), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(conf.DSN)), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", conf.Driver)
	}
}

// sqliteDSN makes sure foreign keys are enforced; sqlite leaves them off
// by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func isMemory(conf config.Database) bool {
	return conf.Driver == "sqlite" && strings.Contains(conf.DSN, ":memory:")
}

// Migrate creates or updates the schema of all nine tables and makes sure
// the fixed statuses exist.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return SeedStatuses(db)
}

// Ping is used by the health check.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
