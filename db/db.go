// Package db 为数据库锁驱动提供会话抽象与 GORM 组件。
//
// Session 是 pglock、mslock 唯一依赖的数据库能力，可以由 database/sql、
// GORM、pgx 三种客户端适配而来。DB 组件在连接器之上提供：
//   - GORM 实例与事务封装（事务级锁）
//   - 专用连接的 Session（会话级锁必须在同一连接上获取和释放）
//   - 接入 clog 的 SQL 日志
//
// ## 基本使用
//
//	pgConn, _ := connector.NewPostgreSQL(&cfg.Postgres, connector.WithLogger(logger))
//	defer pgConn.Close()
//	pgConn.Connect(ctx)
//
//	database, _ := db.New(&db.Config{Driver: db.DriverPostgres},
//		db.WithPostgreSQLConnector(pgConn),
//		db.WithLogger(logger),
//	)
//
//	// 事务级锁：随事务提交或回滚释放
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return locks.WithLock(ctx, factory.NewLock(db.NewGorm(tx), "orders"), func(ctx context.Context) error {
//			return tx.Create(&order).Error
//		})
//	})
//
//	// 会话级锁：固定一条连接
//	sess, release, _ := database.Session(ctx)
//	defer release()
//
// db 组件借用连接器的连接池，不负责其生命周期。
package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/xerrors"
)

// DB 数据库组件的核心能力
type DB interface {
	// DB 获取绑定 ctx 的 *gorm.DB
	DB(ctx context.Context) *gorm.DB

	// Transaction 执行事务，fn 中的 tx 仅在当前事务内有效
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Session 从连接池取出一条专用连接，release 将其归还。
	// 会话级锁应在 release 之前释放，否则锁会随连接留在池中。
	Session(ctx context.Context) (sess Session, release func() error, err error)

	// Driver 返回当前驱动名
	Driver() string

	// Close 关闭组件，不关闭连接器
	Close() error
}

type database struct {
	client *gorm.DB
	driver string
	style  BindStyle
	logger clog.Logger
}

// New 创建数据库组件
//
// 根据 cfg.Driver 选择连接器：postgres 需要 WithPostgreSQLConnector，
// sqlserver 需要 WithSQLServerConnector。连接器必须已经 Connect。
func New(cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid db config")
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}

	var (
		client *gorm.DB
		style  BindStyle
	)
	switch cfg.Driver {
	case DriverPostgres:
		if opt.postgresqlConnector == nil {
			return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "postgresql connector is required for driver %s", cfg.Driver)
		}
		client = opt.postgresqlConnector.GetClient()
		style = Dollar
	case DriverSQLServer:
		if opt.sqlserverConnector == nil {
			return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "sqlserver connector is required for driver %s", cfg.Driver)
		}
		client = opt.sqlserverConnector.GetClient()
		style = AtP
	}
	if client == nil {
		return nil, xerrors.Wrapf(xerrors.ErrUnavailable, "%s connector is not connected", cfg.Driver)
	}

	return newDatabase(client, cfg, style, opt), nil
}

func newDatabase(client *gorm.DB, cfg *Config, style BindStyle, opt options) *database {
	client = client.Session(&gorm.Session{
		Logger: newGormLogger(opt.logger, cfg.SlowThreshold, opt.silentMode),
	})
	return &database{
		client: client,
		driver: cfg.Driver,
		style:  style,
		logger: opt.logger,
	}
}

// DB 获取底层的 *gorm.DB 实例
func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

// Transaction 执行事务操作
func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

// Session 取出一条专用连接
func (d *database) Session(ctx context.Context) (Session, func() error, error) {
	sqlDB, err := d.client.DB()
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "get sql.DB")
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "acquire dedicated connection")
	}
	return NewSQL(conn, d.style), conn.Close, nil
}

// Driver 返回驱动名
func (d *database) Driver() string {
	return d.driver
}

// Close 连接由连接器管理，这里不需要额外关闭
func (d *database) Close() error {
	return nil
}
