// Package pglock 基于 PostgreSQL advisory lock 实现 locks.Factory[db.Session]。
//
// 资源名经 locks.ResourceID 映射为 int64 键。事务级锁（默认）在事务提交或回滚时
// 自动释放，Release 为空操作；会话级锁需要显式 Release，且获取与释放必须在同一连接上。
//
//	factory, _ := pglock.New(&locks.Config{Scope: locks.Transaction})
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		lock := factory.NewLock(db.NewGorm(tx), "orders", locks.WithTimeout(3*time.Second))
//		return locks.WithLock(ctx, lock, func(ctx context.Context) error {
//			return tx.Create(&order).Error
//		})
//	})
//
// 阻塞且不设超时的请求使用 pg_advisory_lock 等阻塞函数；其余请求按 Delay 轮询
// pg_try_advisory_lock 系列函数。
package pglock

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/db"
	"github.com/ceyewan/locks/xerrors"
)

// BackendName 指标与日志中的后端名
const BackendName = "postgres"

// Factory PostgreSQL advisory lock 工厂
type Factory struct {
	cfg *locks.Config
	rt  *locks.Runtime
}

var _ locks.Factory[db.Session] = (*Factory)(nil)

// New 创建工厂，cfg 中未设置的字段取默认值
func New(cfg *locks.Config, opts ...locks.Option) (*Factory, error) {
	if cfg == nil {
		return nil, locks.ErrConfigNil
	}
	c := *cfg
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	rt, err := locks.NewRuntime(BackendName, opts...)
	if err != nil {
		return nil, err
	}
	return &Factory{cfg: &c, rt: rt}, nil
}

// NewLock 在 sess 上创建锁。锁只借用 sess，不会提交、回滚或关闭它。
func (f *Factory) NewLock(sess db.Session, resource string, opts ...locks.LockOption) locks.Lock {
	req := f.cfg.NewRequest(resource, opts...)
	return f.rt.NewLock(&backend{
		sess:   sess,
		id:     locks.ResourceID(resource),
		delay:  f.cfg.Delay,
		logger: f.rt.Logger(),
	}, req)
}

type backend struct {
	sess   db.Session
	id     int64
	delay  time.Duration
	logger clog.Logger
}

func (b *backend) statement(fn string) string {
	return fmt.Sprintf("SELECT %s(%s)", fn, b.sess.Bind(1))
}

func (b *backend) Acquire(ctx context.Context, req locks.Request) error {
	if b.sess == nil {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "pglock: nil session for resource %q", req.Resource)
	}
	fns, ok := Select(req.Block, req.LockType, req.Scope)
	if !ok {
		return xerrors.Wrapf(locks.ErrInvalidLockType, "%s/%s", req.LockType, req.Scope)
	}
	// 阻塞请求带超时时仍需 try 函数轮询
	tryFns := fns
	if fns.Wait {
		tryFns, _ = Select(false, req.LockType, req.Scope)
	}

	try := func(ctx context.Context) (bool, error) {
		var acquired bool
		if err := b.sess.Scan(ctx, &acquired, b.statement(tryFns.Acquire), b.id); err != nil {
			return false, xerrors.Wrapf(err, "pglock: %s", tryFns.Acquire)
		}
		return acquired, nil
	}
	var wait locks.Wait
	if fns.Wait {
		wait = func(ctx context.Context) error {
			if err := b.sess.Exec(ctx, b.statement(fns.Acquire), b.id); err != nil {
				return xerrors.Wrapf(err, "pglock: %s", fns.Acquire)
			}
			return nil
		}
	}

	return locks.Acquire(ctx, req, b.delay, try, wait)
}

// Release 事务级锁无需释放；会话级锁调用对应的 unlock 函数
func (b *backend) Release(ctx context.Context, req locks.Request) error {
	fns, ok := Select(req.Block, req.LockType, req.Scope)
	if !ok || fns.Release == "" {
		return nil
	}

	var released bool
	if err := b.sess.Scan(ctx, &released, b.statement(fns.Release), b.id); err != nil {
		return xerrors.Wrapf(err, "pglock: %s", fns.Release)
	}
	if !released {
		// 锁已不在当前会话上，例如连接被替换或已被手动释放
		b.logger.WarnContext(ctx, "advisory lock was not held by session", clog.String("function", fns.Release), clog.LockID(b.id))
	}
	return nil
}
