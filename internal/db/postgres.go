package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/logger"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

func OpenPostgres(conf *config.PostgresConfig) (*gorm.DB, error) {
	return open(conf.DSN(), conf)
}

// OpenPostgresWithURL connects using a URL such as the DATABASE_URL that
// hosting platforms inject. Other settings still come from conf.
func OpenPostgresWithURL(url string, conf *config.PostgresConfig) (*gorm.DB, error) {
	return open(url, conf)
}

func open(dsn string, conf *config.PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.NewGormLogger(conf.SlowQuery),
		TranslateError: false,
	})
	if err != nil {
		return nil, fmt.Errorf("gorm.Open -> %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB -> %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if conf.AutoMigrate {
		if err = dao.InitTables(db); err != nil {
			return nil, fmt.Errorf("dao.InitTables -> %w", err)
		}
	}

	return db, nil
}
