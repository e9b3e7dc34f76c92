package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// InstrumentationName 锁操作 Tracer 的名称
const InstrumentationName = "github.com/ceyewan/locks"

// 锁 Span 的属性键
const (
	AttrLockBackend  = "lock.backend"
	AttrLockResource = "lock.resource"
	AttrLockType     = "lock.type"
	AttrLockScope    = "lock.scope"
	AttrLockBlock    = "lock.block"
	AttrLockOutcome  = "lock.outcome"
)

// 锁操作
const (
	OperationAcquire = "acquire"
	OperationRelease = "release"
)

// LockMeta 描述一次锁操作
type LockMeta struct {
	Backend  string
	Resource string
	LockType string
	Scope    string
	Block    bool
}

// Tracer 返回全局 Provider 上的锁 Tracer
func Tracer() oteltrace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// SpanNameLock 返回锁操作的 Span 名，如 "lock.acquire postgres"
func SpanNameLock(operation, backend string) string {
	if backend == "" {
		return "lock." + operation
	}
	return "lock." + operation + " " + backend
}

// StartLockSpan 为锁操作开启 INTERNAL Span。
// 资源名作为属性而不是 Span 名的一部分，避免名称基数失控。
func StartLockSpan(ctx context.Context, tracer oteltrace.Tracer, operation string, meta LockMeta) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = Tracer()
	}
	return tracer.Start(ctx, SpanNameLock(operation, meta.Backend),
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			attribute.String(AttrLockBackend, meta.Backend),
			attribute.String(AttrLockResource, meta.Resource),
			attribute.String(AttrLockType, meta.LockType),
			attribute.String(AttrLockScope, meta.Scope),
			attribute.Bool(AttrLockBlock, meta.Block),
		),
	)
}

// SetOutcome 记录操作结果，如 "held"、"locked"
func SetOutcome(span oteltrace.Span, outcome string) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.String(AttrLockOutcome, outcome))
}

// MarkSpanError 当 err 不为 nil 时记录错误并将 Span 标记为失败
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
