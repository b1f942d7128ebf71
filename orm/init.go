package orm

import (
	"errors"
	"fmt"
	"strings"

	"plugin-updater/config"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// DB gives access to the plugin database.
type DB struct {
	dbGorm *gorm.DB
}

// InitDB connects to the database described by cfg and migrates the schema.
func InitDB(cfg *config.AppConfig) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host='%s' port='%d' user='%s' password='%s' dbname='%s' sslmode='%s'",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Username,
			cfg.Database.Password,
			cfg.Database.Database,
			cfg.Database.SSLMode,
		)

		dsnRedacted := dsn
		if cfg.Database.Password != "" {
			dsnRedacted = strings.ReplaceAll(dsn, cfg.Database.Password, "*****")
		}
		log.Debug().
			Msgf("Connecting to postgres using the following information: %s", dsnRedacted)

		dialector = postgres.Open(dsn)
	case "sqlite":
		log.Debug().Str("path", cfg.Database.Path).Msg("Opening sqlite database")

		dialector = sqlite.Open(cfg.Database.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Database.Driver)
	}

	return Open(dialector)
}

// Open connects through dialector and migrates the schema.
func Open(dialector gorm.Dialector) (*DB, error) {
	dbGorm, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, &DatabaseError{Inner: fmt.Errorf("connect: %w", err)}
	}

	log.Debug().Msg("Successfully connected to the database")

	err = dbGorm.AutoMigrate(&Plugin{}, &PreviousVersion{}, &Dependency{}, &Metadata{})
	if err != nil {
		return nil, &DatabaseError{Inner: fmt.Errorf("migrate: %w", err)}
	}

	return &DB{dbGorm: dbGorm}, nil
}

// UseTransaction returns a DB that runs its queries in tx.
func (db *DB) UseTransaction(tx *gorm.DB) *DB {
	return &DB{dbGorm: tx}
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.dbGorm.DB()
	if err != nil {
		return &DatabaseError{Inner: err}
	}
	if err := sqlDB.Close(); err != nil {
		return &DatabaseError{Inner: err}
	}

	return nil
}
