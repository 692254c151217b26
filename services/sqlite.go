package services

import (
	"github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type SqliteService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

func NewSqliteService(cfg config.Config) *SqliteService {
	return &SqliteService{database: cfg.SqlitePath}
}

func (ds SqliteService) Id() string {
	return DATABASE_SVC
}

func (ds SqliteService) Db() *gorm.DB {
	return ds.db
}

func (ds *SqliteService) Configure(ctx *context.Context) error {
	return ds.DefaultService.Configure(ctx)
}

func (ds *SqliteService) Start() (err error) {
	ds.db, err = openDatabase(sqlite.Open(ds.database + "?_busy_timeout=5000&_foreign_keys=on"))
	if err != nil {
		return err
	}

	// Single writer.
	if sqlDB, err := ds.db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err = migrate(ds.db); err != nil {
		return err
	}

	log.WithFields(log.Fields{"driver": "sqlite", "path": ds.database}).Info("Database ready")
	return nil
}

func (ds *SqliteService) Shutdown() {
	if ds.db == nil {
		return
	}
	if sqlDB, err := ds.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (ds *SqliteService) HandleError(err error) error {
	return handleDBError(err)
}
