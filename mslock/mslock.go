// Package mslock 基于 SQL Server 应用锁（sp_getapplock）实现 locks.Factory[db.Session]。
//
// 资源名原样作为 @Resource 传入。等待由服务器完成：阻塞请求把超时换算为
// @LockTimeout，非阻塞请求使用 0，因此 Config.Delay 对本驱动无效。
//
// Release 总是调用 sp_releaseapplock，事务级锁也一样，所以应在事务提交前释放：
//
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		lock := factory.NewLock(db.NewGorm(tx), "orders")
//		return locks.WithLock(ctx, lock, func(ctx context.Context) error {
//			return tx.Create(&order).Error
//		})
//	})
package mslock

import (
	"context"
	"fmt"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/db"
	"github.com/ceyewan/locks/xerrors"
)

// BackendName 指标与日志中的后端名
const BackendName = "sqlserver"

// Factory SQL Server 应用锁工厂
type Factory struct {
	cfg *Config
	rt  *locks.Runtime
}

var _ locks.Factory[db.Session] = (*Factory)(nil)

// New 创建工厂
func New(cfg *Config, opts ...locks.Option) (*Factory, error) {
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

// NewLock 在 sess 上创建锁，锁只借用 sess
func (f *Factory) NewLock(sess db.Session, resource string, opts ...locks.LockOption) locks.Lock {
	req := f.cfg.NewRequest(resource, opts...)
	return f.rt.NewLock(&backend{
		sess:      sess,
		principal: f.cfg.DBPrincipal,
		mode:      f.cfg.LockMode,
	}, req)
}

type backend struct {
	sess      db.Session
	principal string
	mode      string
}

func (b *backend) operations(req locks.Request) (Operations, error) {
	if b.sess == nil {
		return Operations{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "mslock: nil session for resource %q", req.Resource)
	}
	ops, ok := Select(req.LockType, req.Scope, b.mode)
	if !ok {
		return Operations{}, xerrors.Wrapf(ErrInvalidLockMode, "%s/%s/%q", req.LockType, req.Scope, b.mode)
	}
	return ops, nil
}

func (b *backend) acquireStatement() string {
	return fmt.Sprintf("DECLARE @result int; "+
		"EXEC @result = %s @DbPrincipal = %s, @Resource = %s, @LockMode = %s, @LockOwner = %s, @LockTimeout = %s; "+
		"SELECT @result;",
		acquireProcedure, b.sess.Bind(1), b.sess.Bind(2), b.sess.Bind(3), b.sess.Bind(4), b.sess.Bind(5))
}

func (b *backend) releaseStatement() string {
	return fmt.Sprintf("EXEC %s @DbPrincipal = %s, @Resource = %s, @LockOwner = %s;",
		releaseProcedure, b.sess.Bind(1), b.sess.Bind(2), b.sess.Bind(3))
}

// Acquire 单次 sp_getapplock，返回值小于 0（超时、取消、死锁、参数错误）视为资源被锁
func (b *backend) Acquire(ctx context.Context, req locks.Request) error {
	ops, err := b.operations(req)
	if err != nil {
		return err
	}

	var result int64
	err = b.sess.Scan(ctx, &result, b.acquireStatement(),
		b.principal, req.Resource, ops.Mode, ops.Owner, Timeout(req.Block, req.Timeout))
	if err != nil {
		return xerrors.Wrapf(err, "mslock: %s", acquireProcedure)
	}
	if result < 0 {
		return locks.NewResourceIsLocked(req.Resource)
	}
	return nil
}

// Release 调用 sp_releaseapplock，两种作用域都需要
func (b *backend) Release(ctx context.Context, req locks.Request) error {
	ops, err := b.operations(req)
	if err != nil {
		return err
	}
	if err := b.sess.Exec(ctx, b.releaseStatement(), b.principal, req.Resource, ops.Owner); err != nil {
		return xerrors.Wrapf(err, "mslock: %s", releaseProcedure)
	}
	return nil
}
