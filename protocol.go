package locks

import (
	"context"
	"time"

	"github.com/ceyewan/locks/xerrors"
)

// Attempt 一次立即返回的获取尝试，true 表示已获得锁
type Attempt func(ctx context.Context) (bool, error)

// Wait 后端原生的阻塞获取，返回 nil 表示已获得锁
type Wait func(ctx context.Context) error

// Poll 反复调用 attempt 直到成功或超时。
//
//   - attempt 返回错误时原样返回，不重试
//   - timeout <= 0 时只尝试一次，失败即返回 ResourceIsLocked
//   - 否则每次失败后休眠 min(delay, 剩余时间)，已用时间达到 timeout
//     后返回 ResourceIsLocked，因此超时错误不会早于 timeout 返回
//
// 已用时间基于单调时钟。ctx 结束时返回 ctx.Err()。
func Poll(ctx context.Context, resource string, timeout, delay time.Duration, attempt Attempt) error {
	start := time.Now()
	for {
		ok, err := attempt(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if timeout <= 0 {
			return NewResourceIsLocked(resource)
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			return NewResourceIsLocked(resource)
		}

		sleep := delay
		if remaining := timeout - elapsed; sleep <= 0 || remaining < sleep {
			sleep = remaining
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Acquire 按请求选择获取路径：
//
//   - 阻塞且未设超时，并且后端提供原生阻塞调用（wait != nil）：一次原生阻塞调用
//   - 其余情况：用 try 原语轮询，超时语义见 Poll
//
// 阻塞且带超时的请求同样走轮询，超时由本地计时保证，不依赖取消数据库语句。
func Acquire(ctx context.Context, req Request, delay time.Duration, try Attempt, wait Wait) error {
	if req.Block && req.Timeout <= 0 && wait != nil {
		return wait(ctx)
	}
	if try == nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "no try primitive for resource %q", req.Resource)
	}
	return Poll(ctx, req.Resource, req.Timeout, delay, try)
}

// Validate 校验请求中的枚举字段
func (r Request) Validate() error {
	if !r.LockType.Valid() {
		return xerrors.Wrapf(ErrInvalidLockType, "%q", r.LockType)
	}
	if !r.Scope.Valid() {
		return xerrors.Wrapf(ErrInvalidScope, "%q", r.Scope)
	}
	return nil
}
