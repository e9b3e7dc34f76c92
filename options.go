package locks

import (
	"time"

	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/metrics"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Option 锁工厂初始化选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	tracer oteltrace.Tracer
}

// WithLogger 注入日志记录器，驱动会追加 "locks.<backend>" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMeter 注入指标 Meter
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithTracer 注入 Tracer，默认取 otel 全局 Provider
func WithTracer(t oteltrace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// lockOptions 单次获取的选项，未设置的字段取工厂默认值
type lockOptions struct {
	block    *bool
	timeout  *time.Duration
	lockType LockType
	scope    ScopeType
}

// LockOption 单次获取的选项函数
type LockOption func(*lockOptions)

// WithBlock 覆盖默认的阻塞模式
func WithBlock(block bool) LockOption {
	return func(o *lockOptions) {
		o.block = &block
	}
}

// WithTimeout 覆盖默认超时，d <= 0 表示不设上限
//
//	lock := factory.NewLock("orders", locks.WithTimeout(3*time.Second))
func WithTimeout(d time.Duration) LockOption {
	return func(o *lockOptions) {
		o.timeout = &d
	}
}

// WithLockType 覆盖默认锁类型
func WithLockType(t LockType) LockOption {
	return func(o *lockOptions) {
		o.lockType = t
	}
}

// WithScope 覆盖默认作用域
func WithScope(s ScopeType) LockOption {
	return func(o *lockOptions) {
		o.scope = s
	}
}
