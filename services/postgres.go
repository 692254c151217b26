package services

import (
	"time"

	"github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

func NewPostgresService(cfg config.Config) *PostgresService {
	return &PostgresService{database: cfg.DatabaseURL}
}

func (ds PostgresService) Id() string {
	return DATABASE_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	return ds.DefaultService.Configure(ctx)
}

const (
	connectAttempts = 10
	maxConnectDelay = 10 * time.Second
)

func (ds *PostgresService) Start() (err error) {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		ds.db, err = openDatabase(postgres.Open(ds.database))
		if err == nil {
			break
		}

		entry := log.WithFields(log.Fields{"attempt": attempt, "max_attempts": connectAttempts, "error": err.Error()})
		if attempt == connectAttempts {
			entry.Error("Postgres unreachable, giving up")
			return err
		}
		entry.WithField("retry_in", delay.String()).Warn("Postgres unreachable, retrying")

		time.Sleep(delay)
		delay = min(delay*2, maxConnectDelay)
	}

	if sqlDB, err := ds.db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err = migrate(ds.db); err != nil {
		return err
	}

	log.WithField("driver", "postgres").Info("Database ready")
	return nil
}

func (ds *PostgresService) Shutdown() {
	if ds.db == nil {
		return
	}
	if sqlDB, err := ds.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	return handleDBError(err)
}
