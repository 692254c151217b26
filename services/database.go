package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/densematrix/study_api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DATABASE_SVC is registered by whichever backend the config selects.
const DATABASE_SVC = "database_svc"

type Database interface {
	Db() *gorm.DB
	HandleError(err error) error
}

// openDatabase opens the dialector and pings it before handing it out.
func openDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.Models()...); err != nil {
		log.WithError(err).Error("Migration failed")
		return err
	}
	return nil
}

func handleDBError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	case strings.Contains(err.Error(), "duplicate key value violates unique constraint"),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		statusCode = http.StatusConflict
		errorType = "UNIQUE_CONSTRAINT"
	case strings.Contains(err.Error(), "database is locked"):
		statusCode = http.StatusServiceUnavailable
		errorType = "DATABASE_LOCKED"
	case strings.Contains(err.Error(), "connection refused"):
		statusCode = http.StatusServiceUnavailable
		errorType = "DATABASE_CONNECTION_ERROR"
	default:
		statusCode = http.StatusInternalServerError
		errorType = "INTERNAL_ERROR"
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}
