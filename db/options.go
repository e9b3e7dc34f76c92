package db

import (
	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/connector"
)

// Option 配置 DB 实例的选项
type Option func(*options)

type options struct {
	logger              clog.Logger
	postgresqlConnector connector.PostgreSQLConnector
	sqlserverConnector  connector.SQLServerConnector
	silentMode          bool
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithPostgreSQLConnector 注入 PostgreSQL 连接器
func WithPostgreSQLConnector(conn connector.PostgreSQLConnector) Option {
	return func(o *options) {
		o.postgresqlConnector = conn
	}
}

// WithSQLServerConnector 注入 SQL Server 连接器
func WithSQLServerConnector(conn connector.SQLServerConnector) Option {
	return func(o *options) {
		o.sqlserverConnector = conn
	}
}

// WithSilentMode 禁用 SQL 日志
func WithSilentMode() Option {
	return func(o *options) {
		o.silentMode = true
	}
}
