package connector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/xerrors"
)

// pool 连接池参数
type pool struct {
	maxIdle     int
	maxOpen     int
	maxLifetime time.Duration
}

// gormConnector 基于 GORM 的连接器，PostgreSQL 与 SQL Server 共用
type gormConnector struct {
	kind    string
	name    string
	dsn     string
	open    func(dsn string) gorm.Dialector
	pool    pool
	db      *gorm.DB
	logger  clog.Logger
	healthy atomic.Bool
	mu      sync.RWMutex
}

func newGormConnector(kind, name, dsn string, open func(string) gorm.Dialector, p pool, opts []Option) *gormConnector {
	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	return &gormConnector{
		kind:   kind,
		name:   name,
		dsn:    dsn,
		open:   open,
		pool:   p,
		logger: opt.logger.With(clog.String("connector", kind), clog.String("name", name)),
	}
}

// Connect 建立连接
func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect")

	// SQL 日志由 db 组件按需挂载
	db, err := gorm.Open(c.open(c.dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		c.logger.Error("failed to open connection", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: failed to get db instance: %v", c.kind, c.name, err)
	}

	sqlDB.SetMaxIdleConns(c.pool.maxIdle)
	sqlDB.SetMaxOpenConns(c.pool.maxOpen)
	sqlDB.SetConnMaxLifetime(c.pool.maxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		c.logger.Error("ping failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: ping failed: %v", c.kind, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("connected")
	return nil
}

// Close 关闭连接
func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close connection", clog.Error(err))
		return err
	}

	c.db = nil
	c.logger.Info("connection closed")
	return nil
}

// HealthCheck 检查连接健康状态
func (c *gormConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.kind, c.name)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.kind, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

// IsHealthy 返回缓存的健康状态
func (c *gormConnector) IsHealthy() bool {
	return c.healthy.Load()
}

// Name 返回连接器名称
func (c *gormConnector) Name() string {
	return c.name
}

// GetClient 返回 GORM 客户端
func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
