package pglock

import "github.com/ceyewan/locks"

// Functions 一次请求对应的 advisory lock 函数
type Functions struct {
	// Acquire 获取函数。try 系列返回 bool，其余阻塞直到获得锁
	Acquire string
	// Release 释放函数，事务级锁为空：随事务提交或回滚释放
	Release string
	// Wait 为 true 表示 Acquire 会阻塞等待
	Wait bool
}

type selectorKey struct {
	block    bool
	lockType locks.LockType
	scope    locks.ScopeType
}

var selector = map[selectorKey]Functions{
	{true, locks.Exclusive, locks.Session}:     {Acquire: "pg_advisory_lock", Release: "pg_advisory_unlock", Wait: true},
	{true, locks.Shared, locks.Session}:        {Acquire: "pg_advisory_lock_shared", Release: "pg_advisory_unlock_shared", Wait: true},
	{true, locks.Exclusive, locks.Transaction}: {Acquire: "pg_advisory_xact_lock", Wait: true},
	{true, locks.Shared, locks.Transaction}:    {Acquire: "pg_advisory_xact_lock_shared", Wait: true},

	{false, locks.Exclusive, locks.Session}:     {Acquire: "pg_try_advisory_lock", Release: "pg_advisory_unlock"},
	{false, locks.Shared, locks.Session}:        {Acquire: "pg_try_advisory_lock_shared", Release: "pg_advisory_unlock_shared"},
	{false, locks.Exclusive, locks.Transaction}: {Acquire: "pg_try_advisory_xact_lock"},
	{false, locks.Shared, locks.Transaction}:    {Acquire: "pg_try_advisory_xact_lock_shared"},
}

// Select 查表得到函数组合，未知的锁类型或作用域返回 false
func Select(block bool, lockType locks.LockType, scope locks.ScopeType) (Functions, bool) {
	fns, ok := selector[selectorKey{block: block, lockType: lockType, scope: scope}]
	return fns, ok
}
