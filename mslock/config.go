package mslock

import (
	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/xerrors"
)

// DefaultDBPrincipal sp_getapplock 默认的数据库主体
const DefaultDBPrincipal = "public"

// ErrInvalidLockMode 自定义锁模式不在 SQL Server 支持的范围内
var ErrInvalidLockMode = xerrors.New("mslock: invalid lock mode")

// Config SQL Server 应用锁工厂配置
//
//	delay: 500ms
//	block: true
//	lock_type: EXCLUSIVE
//	scope: TRANSACTION
//	lock_mode: Update
//	db_principal: public
type Config struct {
	locks.Config `mapstructure:",squash" yaml:",inline"`

	// LockMode 非空时覆盖 LockType 推导出的模式，
	// 取值 Shared、Update、IntentShared、IntentExclusive、Exclusive
	LockMode string `mapstructure:"lock_mode" yaml:"lock_mode" json:"lock_mode"`

	// DBPrincipal 默认 "public"
	DBPrincipal string `mapstructure:"db_principal" yaml:"db_principal" json:"db_principal"`
}

// SetDefaults 补全未设置的字段
func (c *Config) SetDefaults() {
	c.Config.SetDefaults()
	if c.DBPrincipal == "" {
		c.DBPrincipal = DefaultDBPrincipal
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if c.LockMode != "" && !ValidLockMode(c.LockMode) {
		return xerrors.Wrapf(ErrInvalidLockMode, "%q", c.LockMode)
	}
	return nil
}
