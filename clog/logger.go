// Package clog 是 locks 使用的结构化日志组件，底层基于 log/slog。
//
// 各锁驱动通过 locks.WithLogger 注入 Logger，并以 "locks.<backend>"
// 作为命名空间。未注入时使用 Discard()，不会产生任何输出。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "debug", Format: "console"})
//	logger.Info("lock acquired", clog.String("resource", "orders"))
//
// 带命名空间：
//
//	logger = logger.WithNamespace("locks", "postgres")
package clog

import "context"

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// 带 Context 的版本会额外提取 WithContextField 配置的字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 在现有命名空间后追加，最终以 "." 连接
	//
	//   logger.WithNamespace("locks").WithNamespace("file")
	//   // namespace=locks.file
	WithNamespace(parts ...string) Logger

	// SetLevel 运行时调整日志级别，对所有派生 Logger 生效
	SetLevel(level Level)
}
