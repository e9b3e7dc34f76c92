package locks

import (
	"context"
	"time"

	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/metrics"
	"github.com/ceyewan/locks/trace"
	"github.com/ceyewan/locks/xerrors"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// Backend 驱动实现的最小能力：按请求获取与释放。
//
// Acquire 必须完成完整的获取协议（通常借助 Acquire/Poll），
// 失败时不得遗留已持有的锁。自动释放的作用域下 Release 可以是空操作。
type Backend interface {
	Acquire(ctx context.Context, req Request) error
	Release(ctx context.Context, req Request) error
}

// Runtime 同一个工厂产出的锁共享的日志、指标与 Tracer
type Runtime struct {
	backend string
	logger  clog.Logger
	metrics *lockMetrics
	tracer  oteltrace.Tracer
}

// NewRuntime 为名为 backend 的驱动创建 Runtime
func NewRuntime(backend string, opts ...Option) (*Runtime, error) {
	o := options{logger: clog.Discard(), meter: metrics.Discard(), tracer: trace.Tracer()}
	for _, opt := range opts {
		opt(&o)
	}

	lm, err := newLockMetrics(o.meter)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		backend: backend,
		logger:  o.logger.WithNamespace("locks", backend),
		metrics: lm,
		tracer:  o.tracer,
	}, nil
}

// Backend 驱动名
func (r *Runtime) Backend() string { return r.backend }

// Logger 带驱动命名空间的 Logger
func (r *Runtime) Logger() clog.Logger { return r.logger }

// NewLock 用驱动能力 b 包装出一个 Lock
func (r *Runtime) NewLock(b Backend, req Request) *Handle {
	return &Handle{
		rt:      r,
		backend: b,
		req:     req,
		logger:  r.logger.With(clog.Resource(req.Resource), clog.String("lock_type", string(req.LockType))),
	}
}

// Handle 是各驱动共用的 Lock 实现，维护 IDLE → WAITING → HELD/TIMED_OUT 状态机。
//
// Handle 不是并发安全的：与它借用的数据库连接一样，同一时刻只应在一个 goroutine 中使用。
type Handle struct {
	rt      *Runtime
	backend Backend
	req     Request
	logger  clog.Logger

	state  State
	heldAt time.Time
}

func (h *Handle) Resource() string { return h.req.Resource }

func (h *Handle) Request() Request { return h.req }

func (h *Handle) State() State { return h.state }

// Acquire 执行获取协议。已持有时返回 ErrLockAlreadyHeld。
func (h *Handle) Acquire(ctx context.Context) error {
	if h.state == StateHeld {
		return xerrors.Wrapf(ErrLockAlreadyHeld, "resource %q", h.req.Resource)
	}
	if err := h.req.Validate(); err != nil {
		return err
	}

	ctx, span := trace.StartLockSpan(ctx, h.rt.tracer, trace.OperationAcquire, h.spanMeta())
	defer span.End()

	h.state = StateWaiting
	start := time.Now()
	err := h.backend.Acquire(ctx, h.req)
	waited := time.Since(start)

	labels := h.labels()
	h.rt.metrics.wait.Record(ctx, waited.Seconds(), labels...)

	if err != nil {
		if IsResourceLocked(err) {
			h.state = StateTimedOut
			trace.SetOutcome(span, ReasonLocked)
			h.rt.metrics.failed.Inc(ctx, append(labels, metrics.L(LabelReason, ReasonLocked))...)
			h.logger.DebugContext(ctx, "resource is locked", clog.Duration("waited", waited))
		} else {
			h.state = StateIdle
			trace.MarkSpanError(span, err)
			h.rt.metrics.failed.Inc(ctx, append(labels, metrics.L(LabelReason, ReasonError))...)
			h.logger.WarnContext(ctx, "acquire lock failed", clog.Error(err), clog.Duration("waited", waited))
		}
		return err
	}

	h.state = StateHeld
	h.heldAt = time.Now()
	trace.SetOutcome(span, "held")
	h.rt.metrics.acquired.Inc(ctx, labels...)
	h.rt.metrics.held.Inc(ctx, labels...)
	h.logger.DebugContext(ctx, "lock acquired", clog.Duration("waited", waited))
	return nil
}

// Release 释放锁，只有 HELD 状态可以释放，否则返回 ErrLockNotHeld。
// 无论后端释放是否成功，实例都回到 IDLE；后端错误原样返回。
func (h *Handle) Release(ctx context.Context) error {
	if h.state != StateHeld {
		return xerrors.Wrapf(ErrLockNotHeld, "resource %q (state %s)", h.req.Resource, h.state)
	}

	ctx, span := trace.StartLockSpan(ctx, h.rt.tracer, trace.OperationRelease, h.spanMeta())
	defer span.End()

	err := h.backend.Release(ctx, h.req)
	held := time.Since(h.heldAt)
	h.state = StateIdle

	labels := h.labels()
	h.rt.metrics.held.Dec(ctx, labels...)
	h.rt.metrics.hold.Record(ctx, held.Seconds(), labels...)
	if err != nil {
		trace.MarkSpanError(span, err)
		h.logger.ErrorContext(ctx, "release lock failed", clog.Error(err), clog.Duration("held", held))
		return err
	}
	h.rt.metrics.released.Inc(ctx, labels...)
	h.logger.DebugContext(ctx, "lock released", clog.Duration("held", held))
	return nil
}

func (h *Handle) labels() []metrics.Label {
	return []metrics.Label{
		metrics.L(LabelBackend, h.rt.backend),
		metrics.L(LabelLockType, string(h.req.LockType)),
	}
}

func (h *Handle) spanMeta() trace.LockMeta {
	return trace.LockMeta{
		Backend:  h.rt.backend,
		Resource: h.req.Resource,
		LockType: string(h.req.LockType),
		Scope:    string(h.req.Scope),
		Block:    h.req.Block,
	}
}
