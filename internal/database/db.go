package database

import (
	"errors"
	"fmt"

	"opsconsole/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

// NewConnection opens the postgres pool through GORM and migrates the schema.
func NewConnection(dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := Migrate(db); err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}
	return db, nil
}

// Migrate creates or updates every table the console owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.LoginCode{},
		&model.AuditLog{},
		&model.Account{},
		&model.Customer{},
		&model.Product{},
		&model.PriceList{},
	)
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
