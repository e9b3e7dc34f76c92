package locks

import (
	"context"

	"github.com/ceyewan/locks/xerrors"
)

// Lock 绑定到单个资源的锁实例
//
// 一个 Lock 对应一次临界区：Acquire 成功后必须 Release。
// 推荐通过 WithLock 使用，保证任何退出路径上都会释放。
type Lock interface {
	Resource() string
	Request() Request
	State() State

	// Acquire 获取锁。资源被占用或超时返回 ResourceIsLockedError，
	// 后端错误原样返回。
	Acquire(ctx context.Context) error

	// Release 释放锁。事务作用域的 PostgreSQL 锁由事务结束释放，此处为空操作。
	Release(ctx context.Context) error
}

// Locker 已绑定连接的锁工厂，例如 filelock.Factory，或 Bind 的结果
type Locker interface {
	NewLock(resource string, opts ...LockOption) Lock
}

// LockerFunc 函数适配为 Locker
type LockerFunc func(resource string, opts ...LockOption) Lock

func (f LockerFunc) NewLock(resource string, opts ...LockOption) Lock {
	return f(resource, opts...)
}

// Factory 需要调用方提供连接的锁工厂，例如 pglock.Factory。
// 工厂只借用连接，不负责打开或关闭它。
type Factory[C any] interface {
	NewLock(conn C, resource string, opts ...LockOption) Lock
}

// Bind 把连接绑定到 Factory，得到 Locker
//
//	locker := locks.Bind[db.Session](pgFactory, db.NewGorm(tx))
func Bind[C any](f Factory[C], conn C) Locker {
	return LockerFunc(func(resource string, opts ...LockOption) Lock {
		return f.NewLock(conn, resource, opts...)
	})
}

// WithLock 获取锁后执行 fn，并在任何退出路径上释放锁，包括 fn panic。
//
// 获取失败时直接返回获取错误，fn 不会执行。fn 与释放的错误通过
// xerrors.Combine 合并，两者都可用 errors.Is 判断。
// 释放使用 context.WithoutCancel(ctx)，调用方取消 ctx 不会跳过释放。
func WithLock(ctx context.Context, lock Lock, fn func(ctx context.Context) error) (err error) {
	if err := lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		releaseErr := lock.Release(context.WithoutCancel(ctx))
		err = xerrors.Combine(err, releaseErr)
	}()
	return fn(ctx)
}
