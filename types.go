// Package locks 提供基于外部系统仲裁的命名协作锁。
//
// 锁以字符串资源名标识，支持排他/共享两种类型、事务/会话两种作用域，
// 以及阻塞、非阻塞、带超时三种获取方式。互斥由后端保证，本包只负责
// 把一次获取请求翻译成后端调用序列：
//
//   - filelock: 文件系统 flock 咨询锁，进程级作用域
//   - pglock:   PostgreSQL advisory lock
//   - mslock:   SQL Server sp_getapplock
//
// 所有驱动在资源被占用或超时后都返回同一个错误 ResourceIsLockedError，
// 可用 errors.Is(err, locks.ErrResourceIsLocked) 判断；其他错误原样透传。
//
// 基本使用：
//
//	factory, _ := filelock.New(&filelock.Config{Path: "/var/run/myapp"})
//	lock := factory.NewLock("orders", locks.WithTimeout(3*time.Second))
//	err := locks.WithLock(ctx, lock, func(ctx context.Context) error {
//	    return processOrders(ctx)
//	})
//	if errors.Is(err, locks.ErrResourceIsLocked) {
//	    // 资源被其他持有者占用
//	}
package locks

import (
	"strings"
	"time"

	"github.com/ceyewan/locks/xerrors"
)

// LockType 锁类型
type LockType string

const (
	// Exclusive 排他锁，与任何其他锁互斥
	Exclusive LockType = "EXCLUSIVE"
	// Shared 共享锁，多个共享锁可同时持有，与排他锁互斥
	Shared LockType = "SHARED"
)

// Valid 判断是否为已知的锁类型
func (t LockType) Valid() bool {
	return t == Exclusive || t == Shared
}

// ParseLockType 不区分大小写地解析锁类型
func ParseLockType(s string) (LockType, error) {
	t := LockType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", xerrors.Wrapf(ErrInvalidLockType, "%q", s)
	}
	return t, nil
}

// ScopeType 锁作用域，决定由什么事件自动释放锁
type ScopeType string

const (
	// Transaction 随数据库事务提交或回滚释放
	Transaction ScopeType = "TRANSACTION"
	// Session 随数据库会话结束释放，或显式释放
	Session ScopeType = "SESSION"
)

// Valid 判断是否为已知的作用域
func (s ScopeType) Valid() bool {
	return s == Transaction || s == Session
}

// ParseScope 不区分大小写地解析作用域
func ParseScope(s string) (ScopeType, error) {
	scope := ScopeType(strings.ToUpper(strings.TrimSpace(s)))
	if !scope.Valid() {
		return "", xerrors.Wrapf(ErrInvalidScope, "%q", s)
	}
	return scope, nil
}

// Request 一次锁获取请求，所有字段都已按工厂默认值补全
type Request struct {
	Resource string
	Block    bool
	// Timeout <= 0 表示未设置上限，各后端对它的解释不同：
	// 轮询类后端在首次失败时立即返回 ResourceIsLocked，
	// 原生阻塞类后端（阻塞模式下）无限等待。
	Timeout  time.Duration
	LockType LockType
	Scope    ScopeType
}

// State 锁实例的生命周期状态
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateHeld
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWaiting:
		return "WAITING"
	case StateHeld:
		return "HELD"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}
