package db

import (
	"time"

	"github.com/ceyewan/locks/xerrors"
)

// 支持的驱动
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

// Config DB 组件配置
type Config struct {
	// Driver "postgres" 或 "sqlserver"，默认 "postgres"
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`

	// SlowThreshold 超过该耗时的 SQL 以 warn 级别记录，默认 200ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold" json:"slow_threshold" yaml:"slow_threshold"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.Driver != DriverPostgres && c.Driver != DriverSQLServer {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported driver: %s (must be 'postgres' or 'sqlserver')", c.Driver)
	}
	return nil
}
