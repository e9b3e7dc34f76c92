package locks

import (
	"time"

	"github.com/ceyewan/locks/xerrors"
)

// DefaultDelay 轮询两次尝试之间的默认间隔
const DefaultDelay = 500 * time.Millisecond

// Config 各驱动共用的锁工厂默认值
//
// 典型配置（YAML）：
//
//	delay: 500ms
//	block: true
//	timeout: 0s
//	lock_type: EXCLUSIVE
//	scope: TRANSACTION
type Config struct {
	// Delay 轮询间隔，只对依赖轮询的后端生效
	Delay time.Duration `mapstructure:"delay" yaml:"delay" json:"delay"`

	// Block 默认是否阻塞，nil 表示 true
	Block *bool `mapstructure:"block" yaml:"block" json:"block"`

	// Timeout 默认超时，0 表示不设上限
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`

	LockType LockType  `mapstructure:"lock_type" yaml:"lock_type" json:"lock_type"`
	Scope    ScopeType `mapstructure:"scope" yaml:"scope" json:"scope"`
}

// SetDefaults 补全未设置的字段
func (c *Config) SetDefaults() {
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.Block == nil {
		block := true
		c.Block = &block
	}
	if c.LockType == "" {
		c.LockType = Exclusive
	}
	if c.Scope == "" {
		c.Scope = Transaction
	}
}

// Validate 校验配置，调用前应先 SetDefaults
func (c *Config) Validate() error {
	if c.Delay <= 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "delay must be positive, got %s", c.Delay)
	}
	if !c.LockType.Valid() {
		return xerrors.Wrapf(ErrInvalidLockType, "%q", c.LockType)
	}
	if !c.Scope.Valid() {
		return xerrors.Wrapf(ErrInvalidScope, "%q", c.Scope)
	}
	return nil
}

// NewRequest 用工厂默认值补全单次调用的选项
func (c *Config) NewRequest(resource string, opts ...LockOption) Request {
	o := lockOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	req := Request{
		Resource: resource,
		Block:    c.Block == nil || *c.Block,
		Timeout:  c.Timeout,
		LockType: c.LockType,
		Scope:    c.Scope,
	}
	if o.block != nil {
		req.Block = *o.block
	}
	if o.timeout != nil {
		req.Timeout = *o.timeout
	}
	if o.lockType != "" {
		req.LockType = o.lockType
	}
	if o.scope != "" {
		req.Scope = o.scope
	}
	return req
}
