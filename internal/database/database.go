package database

import (
	"fmt"

	"dropoutpredictor/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InMemory is the DSN of a process-local sqlite database.
const InMemory = ":memory:"

// Open connects to the session database and migrates the run table.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	// Every new connection to :memory: gets its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get session database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.Run{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate the session database: %w", err)
	}
	return db, nil
}
