package mslock

import (
	"time"

	"github.com/ceyewan/locks"
)

// Operations 一次请求对应的 sp_getapplock 参数
type Operations struct {
	// Mode @LockMode
	Mode string
	// Owner @LockOwner
	Owner string
}

const (
	acquireProcedure = "sp_getapplock"
	releaseProcedure = "sp_releaseapplock"
)

var lockModes = map[locks.LockType]string{
	locks.Exclusive: "Exclusive",
	locks.Shared:    "Shared",
}

var lockOwners = map[locks.ScopeType]string{
	locks.Transaction: "Transaction",
	locks.Session:     "Session",
}

var validModes = map[string]struct{}{
	"Shared":          {},
	"Update":          {},
	"IntentShared":    {},
	"IntentExclusive": {},
	"Exclusive":       {},
}

// ValidLockMode mode 是否为 sp_getapplock 接受的锁模式
func ValidLockMode(mode string) bool {
	_, ok := validModes[mode]
	return ok
}

// Select 查表得到锁模式与持有者。customMode 非空时优先使用，
// 但必须是合法模式；任一查找失败返回 false。
func Select(lockType locks.LockType, scope locks.ScopeType, customMode string) (Operations, bool) {
	owner, ok := lockOwners[scope]
	if !ok {
		return Operations{}, false
	}
	if customMode != "" {
		if !ValidLockMode(customMode) {
			return Operations{}, false
		}
		return Operations{Mode: customMode, Owner: owner}, true
	}
	mode, ok := lockModes[lockType]
	if !ok {
		return Operations{}, false
	}
	return Operations{Mode: mode, Owner: owner}, true
}

// Timeout 换算 @LockTimeout（毫秒）：
//   - 非阻塞：0，立即返回
//   - 阻塞且 timeout <= 0：-1，无限等待
//   - 其余：timeout 的毫秒数
//
// 与 PostgreSQL 不同，这里由服务器等待，不走本地轮询。
func Timeout(block bool, timeout time.Duration) int64 {
	if !block {
		return 0
	}
	if timeout <= 0 {
		return -1
	}
	return timeout.Milliseconds()
}
