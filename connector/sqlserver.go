package connector

import (
	"gorm.io/driver/sqlserver"

	"github.com/ceyewan/locks/xerrors"
)

// NewSQLServer 创建 SQL Server 连接器，实际连接在 Connect() 时建立
func NewSQLServer(cfg *SQLServerConfig, opts ...Option) (SQLServerConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid sqlserver config")
	}

	return newGormConnector("sqlserver", cfg.Name, cfg.dsn(), sqlserver.Open, pool{
		maxIdle:     cfg.MaxIdleConns,
		maxOpen:     cfg.MaxOpenConns,
		maxLifetime: cfg.ConnMaxLifetime,
	}, opts), nil
}
