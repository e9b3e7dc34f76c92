package clog

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// 自动添加的字段名
const (
	NamespaceKey = "namespace"
	TraceIDKey   = "trace_id"
	SpanIDKey    = "span_id"
)

type loggerImpl struct {
	handler   slog.Handler
	level     *slog.LevelVar
	options   *options
	baseAttrs []slog.Attr
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields))
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	return &loggerImpl{handler: l.handler, level: l.level, options: l.options, baseAttrs: attrs}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	o := *l.options
	o.namespaceParts = append(append([]string{}, l.options.namespaceParts...), parts...)
	return &loggerImpl{handler: l.handler, level: l.level, options: &o, baseAttrs: l.baseAttrs}
}

func (l *loggerImpl) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields)+len(l.options.contextFields)+3)
	if len(l.options.namespaceParts) > 0 {
		attrs = append(attrs, slog.String(NamespaceKey, strings.Join(l.options.namespaceParts, ".")))
	}
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	for _, cf := range l.options.contextFields {
		if v := ctx.Value(cf.Key); v != nil {
			attrs = append(attrs, slog.Any(cf.FieldName, v))
		}
	}
	if l.options.traceContext {
		if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String(TraceIDKey, sc.TraceID().String()),
				slog.String(SpanIDKey, sc.SpanID().String()),
			)
		}
	}

	// skip: runtime.Callers, log, Debug/Info/...
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level.slogLevel(), msg, pcs[0])
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)
}
