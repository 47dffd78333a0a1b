package database

import (
	"embed"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"supplymarket/internal/config"
	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteDSN turns on foreign key enforcement unless the DSN sets it itself.
func sqliteDSN(dsn string) string {
	_, params, _ := strings.Cut(dsn, "?")
	for _, p := range strings.Split(params, "&") {
		key, _, _ := strings.Cut(p, "=")
		if key == "_foreign_keys" || key == "_fk" {
			return dsn
		}
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=1"
	}
	return dsn + "?_foreign_keys=1"
}

// Open connects to the configured database.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, &repositories.InitializationError{Err: fmt.Errorf("unsupported driver %q", cfg.Driver)}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(cfg.LogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, &repositories.InitializationError{Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &repositories.InitializationError{Err: err}
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

func newLogger(level string) logger.Interface {
	var lvl logger.LogLevel
	switch strings.ToLower(level) {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	default:
		lvl = logger.Warn
	}
	return logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// Models lists every model in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Region{},
		&models.Category{},
		&models.Company{},
		&models.Product{},
		&models.Request{},
		&models.Offer{},
	}
}

// AutoMigrate creates or updates the schema from the gorm models. It is used
// for sqlite and in tests; postgres deployments run MigrateUp.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return &repositories.InitializationError{Err: fmt.Errorf("failed to auto-migrate database: %w", err)}
	}
	return nil
}

// MigrateUp applies the embedded goose migrations to a postgres database.
func MigrateUp(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return &repositories.InitializationError{Err: err}
	}
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return &repositories.InitializationError{Err: fmt.Errorf("failed to set dialect: %w", err)}
	}
	log.Println("Running database migrations")
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return &repositories.InitializationError{Err: fmt.Errorf("failed to run migrations: %w", err)}
	}
	return nil
}
