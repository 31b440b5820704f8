package persistence

import (
	"context"
	"database/sql"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stagehand/internal/config"
)

// DB is the shared gorm handle, only wired when DATABASE_URL is set.
type DB struct {
	Config *config.Config

	db *gorm.DB
}

func (d *DB) Init(_ context.Context) error {
	gormDB, err := gorm.Open(postgres.Open(d.Config.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	d.db = gormDB
	return nil
}

func (d *DB) Model(a any) *gorm.DB {
	return d.db.Model(a)
}

func (d *DB) AutoMigrate(models ...any) error {
	return d.db.AutoMigrate(models...)
}

func (d *DB) DB() (*sql.DB, error) {
	return d.db.DB()
}

func (d *DB) Shutdown(_ context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}
