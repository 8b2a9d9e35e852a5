package models

import (
	"database/sql"
	"fmt"
	"time"

	"ContentStudio-server/config"

	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured database. MySQL goes through a pooled
// database/sql handle; SQLite is limited to one connection.
func Open(cfg config.Database) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil

	case "mysql":
		sqlDB, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
		if err := sqlDB.Ping(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), gcfg)
		if err != nil {
			return nil, fmt.Errorf("gorm init: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Configuracao{},
		&UserConfiguracao{},
		&Topico{},
		&UserTopico{},
		&Tema{},
		&UserTemaCarrossel{},
		&UserCarrossel{},
		&UserNarracao{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("database migrated")
	return nil
}

// deactivate flips ativo to false on a row owned by userID. It reports
// gorm.ErrRecordNotFound when no active row matched.
func deactivate(db *gorm.DB, model any, userID, id uint) error {
	res := db.Model(model).
		Where("id = ? AND user_id = ? AND ativo = ?", id, userID, true).
		Update("ativo", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
