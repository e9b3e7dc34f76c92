package config

import "github.com/ceyewan/locks/clog"

type options struct {
	logger clog.Logger
}

// Option 加载器选项
type Option func(*options)

// WithLogger 记录加载过程中的提示与告警
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("config")
		}
	}
}
