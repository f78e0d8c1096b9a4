// Package db sets up the record store connection
package db

import (
	"fmt"
	"physlab/lab-api/internal/model"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New opens the configured database and migrates the schema. SQLite
// is the default, a postgres DSN switches the driver
func New() (*gorm.DB, error) {
	var dialector gorm.Dialector

	if dsn := viper.GetString("storage.postgres_dsn"); dsn != "" {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(viper.GetString("storage.sqlite_path"))
	}

	db, err := gorm.Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.VerificationCode{}, model.ResendRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
