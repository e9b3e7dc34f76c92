package connector

import (
	"gorm.io/driver/postgres"

	"github.com/ceyewan/locks/xerrors"
)

// NewPostgreSQL 创建 PostgreSQL 连接器，实际连接在 Connect() 时建立
func NewPostgreSQL(cfg *PostgreSQLConfig, opts ...Option) (PostgreSQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(err, "invalid postgresql config")
	}

	return newGormConnector("postgresql", cfg.Name, cfg.dsn(), postgres.Open, pool{
		maxIdle:     cfg.MaxIdleConns,
		maxOpen:     cfg.MaxOpenConns,
		maxLifetime: cfg.ConnMaxLifetime,
	}, opts), nil
}
