package locks

import (
	"fmt"

	"github.com/ceyewan/locks/xerrors"
)

var (
	// ErrResourceIsLocked 资源已被其他持有者占用，或在超时前未能获取
	ErrResourceIsLocked = xerrors.New("locks: resource is locked")

	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("locks: config is nil")

	// ErrInvalidLockType 未知的锁类型
	ErrInvalidLockType = xerrors.New("locks: invalid lock type")

	// ErrInvalidScope 未知的作用域
	ErrInvalidScope = xerrors.New("locks: invalid scope")

	// ErrLockNotHeld 锁未持有
	ErrLockNotHeld = xerrors.New("locks: lock not held")

	// ErrLockAlreadyHeld 同一实例重复获取
	ErrLockAlreadyHeld = xerrors.New("locks: lock already held")

	// ErrInvalidTemplate 资源名模板语法错误
	ErrInvalidTemplate = xerrors.New("locks: invalid resource template")

	// ErrMissingArgument 模板占位符在参数中不存在
	ErrMissingArgument = xerrors.New("locks: missing template argument")

	// ErrAttributeNotFound 接收者上找不到指定名字的 Locker
	ErrAttributeNotFound = xerrors.New("locks: locker attribute not found")
)

// ResourceIsLockedError 是唯一的领域错误，携带资源名。
//
//	var locked *locks.ResourceIsLockedError
//	if errors.As(err, &locked) {
//	    log.Printf("%s is busy", locked.Resource)
//	}
type ResourceIsLockedError struct {
	Resource string
}

// NewResourceIsLocked 创建 ResourceIsLockedError
func NewResourceIsLocked(resource string) error {
	return &ResourceIsLockedError{Resource: resource}
}

func (e *ResourceIsLockedError) Error() string {
	return fmt.Sprintf("locks: resource %q is locked", e.Resource)
}

// Is 使 errors.Is(err, ErrResourceIsLocked) 成立
func (e *ResourceIsLockedError) Is(target error) bool {
	return target == ErrResourceIsLocked
}

// IsResourceLocked 判断错误链中是否包含 ResourceIsLocked
func IsResourceLocked(err error) bool {
	return xerrors.Is(err, ErrResourceIsLocked)
}
