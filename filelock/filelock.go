// Package filelock 基于文件系统 flock 咨询锁实现 locks.Locker。
//
// 每个资源对应目录下的一个文件 <path>/<resource>.lock。排他锁使用
// LOCK_EX，共享锁使用 LOCK_SH。锁属于进程级作用域：Release 或进程退出时释放，
// 请求中的 Scope 被忽略。
//
// 锁文件不会在释放时删除，可用 Cleaner 定期清理无人持有的文件。
//
//	factory, err := filelock.New(&filelock.Config{Path: "/var/run/myapp"})
//	if err != nil {
//	    return err
//	}
//	lock := factory.NewLock("report", locks.WithBlock(false))
//	if err := lock.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer lock.Release(ctx)
package filelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/xerrors"
)

// BackendName 指标与日志中的后端名
const BackendName = "file"

// Factory 文件锁工厂，实现 locks.Locker
type Factory struct {
	cfg *Config
	rt  *locks.Runtime
}

var _ locks.Locker = (*Factory)(nil)

// New 创建文件锁工厂
func New(cfg *Config, opts ...locks.Option) (*Factory, error) {
	if cfg == nil {
		return nil, locks.ErrConfigNil
	}
	c := *cfg
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.Path, 0o755); err != nil {
		return nil, xerrors.Wrapf(err, "filelock: create %s", c.Path)
	}

	rt, err := locks.NewRuntime(BackendName, opts...)
	if err != nil {
		return nil, err
	}
	return &Factory{cfg: &c, rt: rt}, nil
}

// File 资源对应的锁文件路径。含路径分隔符或 ".." 的资源名在 Acquire 时以 ErrInvalidResource 拒绝，
// 不会在目录外创建文件。
func (f *Factory) File(resource string) string {
	return filepath.Join(f.cfg.Path, resource+f.cfg.Extension)
}

// NewLock 创建文件锁，未设置的选项取配置默认值
func (f *Factory) NewLock(resource string, opts ...locks.LockOption) locks.Lock {
	req := f.cfg.NewRequest(resource, opts...)
	return f.rt.NewLock(&backend{file: f.File(resource), delay: f.cfg.Delay}, req)
}

// Cleaner 返回清理本工厂目录的 Cleaner
func (f *Factory) Cleaner() *Cleaner {
	return newCleaner(f.cfg.Path, f.cfg.Extension, f.cfg.CleanerDelay, f.rt.Logger())
}

// ErrInvalidResource 资源名不能安全地作为锁目录下的文件名
var ErrInvalidResource = xerrors.New("filelock: invalid resource name")

func checkResource(resource string) error {
	if resource == "" || resource == "." || resource == ".." ||
		strings.ContainsAny(resource, "/\\\x00") {
		return xerrors.Wrapf(ErrInvalidResource, "%q", resource)
	}
	return nil
}

// backend 单个锁实例的文件句柄
type backend struct {
	file  string
	delay time.Duration
	fl    *flock.Flock
}

func (b *backend) Acquire(ctx context.Context, req locks.Request) error {
	if err := checkResource(req.Resource); err != nil {
		return err
	}
	shared := req.LockType == locks.Shared

	try := func(context.Context) (bool, error) {
		return b.lockCurrent(func(fl *flock.Flock) (bool, error) {
			if shared {
				return fl.TryRLock()
			}
			return fl.TryLock()
		})
	}

	// 无法取消的 ctx 直接使用阻塞的 flock，否则按 delay 轮询直到 ctx 结束
	wait := func(ctx context.Context) error {
		ok, err := b.lockCurrent(func(fl *flock.Flock) (bool, error) {
			switch {
			case ctx.Done() == nil && shared:
				return true, fl.RLock()
			case ctx.Done() == nil:
				return true, fl.Lock()
			case shared:
				return fl.TryRLockContext(ctx, b.delay)
			default:
				return fl.TryLockContext(ctx, b.delay)
			}
		})
		if err != nil {
			return err
		}
		if !ok {
			return ctx.Err()
		}
		return nil
	}

	return locks.Acquire(ctx, req, b.delay, try, wait)
}

// lockCurrent 用 lock 锁住锁文件，并确认锁住的仍是路径当前指向的文件。
//
// 加锁前先打开 pin 占住 inode。加锁后路径若不再指向 pin（文件已被 Cleaner
// 删除，可能已有他人重建），这次加锁落在孤立的 inode 上，不构成互斥，
// 释放后重新尝试。
func (b *backend) lockCurrent(lock func(fl *flock.Flock) (bool, error)) (bool, error) {
	for {
		pin, err := os.OpenFile(b.file, os.O_RDONLY|os.O_CREATE, 0o600)
		if err != nil {
			return false, xerrors.Wrapf(err, "filelock: open %s", b.file)
		}

		fl := flock.New(b.file)
		ok, err := lock(fl)
		if err != nil || !ok {
			_ = fl.Close()
			_ = pin.Close()
			return false, err
		}

		same, err := sameFile(pin, b.file)
		_ = pin.Close()
		if err != nil {
			_ = fl.Close()
			return false, err
		}
		if same {
			b.fl = fl
			return true, nil
		}
		_ = fl.Close()
	}
}

func sameFile(pin *os.File, path string) (bool, error) {
	pinned, err := pin.Stat()
	if err != nil {
		return false, xerrors.Wrapf(err, "filelock: stat %s", path)
	}
	current, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Wrapf(err, "filelock: stat %s", path)
	}
	return os.SameFile(pinned, current), nil
}

// Release 解锁并关闭文件描述符
func (b *backend) Release(context.Context, locks.Request) error {
	if b.fl == nil {
		return nil
	}
	err := b.fl.Unlock()
	b.fl = nil
	return err
}
