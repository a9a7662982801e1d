package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"horse.fit/incident-integrator/internal/config"
)

const (
	defaultMaxConns = 8
	connIdleTime    = 5 * time.Minute
	connLifetime    = 30 * time.Minute
)

// gormLevels maps LOG_LEVEL onto gorm's quieter scale; SQL statements only
// show up at debug.
var gormLevels = map[string]logger.LogLevel{
	"trace":    logger.Info,
	"debug":    logger.Info,
	"":         logger.Warn,
	"info":     logger.Warn,
	"warn":     logger.Warn,
	"warning":  logger.Warn,
	"error":    logger.Error,
	"silent":   logger.Silent,
	"disabled": logger.Silent,
}

// Pool is the optional run store. It is only opened for --persist and
// --from-db.
type Pool struct {
	gdb   *gorm.DB
	sqlDB *sql.DB
}

// NewPool connects, pings and migrates the integration schema.
func NewPool(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if !cfg.PersistenceEnabled() {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:  logger.Default.LogMode(resolveGormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql db: %w", err)
	}
	limitConns(sqlDB, int(cfg.DBMinConns), int(cfg.DBMaxConns))

	pool := &Pool{gdb: gdb, sqlDB: sqlDB}
	if err := pool.ready(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return pool, nil
}

func (p *Pool) ready(ctx context.Context) error {
	if err := p.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := p.autoMigrate(ctx); err != nil {
		return fmt.Errorf("migrate integration schema: %w", err)
	}
	return nil
}

func limitConns(sqlDB *sql.DB, minConns, maxConns int) {
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(1, min(minConns, maxConns)))
	sqlDB.SetConnMaxIdleTime(connIdleTime)
	sqlDB.SetConnMaxLifetime(connLifetime)
}

func (p *Pool) Close() error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}

// resolveGormLogLevel falls back to Warn locally and Error elsewhere for
// levels gorm has no mapping for.
func resolveGormLogLevel(appLogLevel, environment string) logger.LogLevel {
	if level, ok := gormLevels[strings.ToLower(strings.TrimSpace(appLogLevel))]; ok {
		return level
	}
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return logger.Warn
	}
	return logger.Error
}
