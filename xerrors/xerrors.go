// Package xerrors 提供 locks 各组件共用的错误工具。
//
// 组件以 xerrors.New 声明哨兵错误，用 Wrap/Wrapf 追加上下文，
// 用 Combine 合并释放路径上的多个错误。所有包装都保留错误链，
// 调用方始终可以使用 errors.Is / errors.As 判断。
package xerrors

import (
	"errors"
	"fmt"
)

// 通用哨兵错误，组件错误可以通过 Wrap 挂在它们下面。
var (
	// ErrInvalidInput 参数或配置不合法
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound 目标不存在
	ErrNotFound = errors.New("not found")
	// ErrUnavailable 外部依赖（数据库、文件系统）不可用
	ErrUnavailable = errors.New("unavailable")
)

// 标准库函数再导出，组件只需导入本包
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// Wrap 在 err 前加上 msg，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{msg: msg, cause: err}
}

// Wrapf 与 Wrap 相同，上下文由 format 生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{msg: fmt.Sprintf(format, args...), cause: err}
}

type wrapped struct {
	msg   string
	cause error
}

func (w *wrapped) Error() string { return w.msg + ": " + w.cause.Error() }

func (w *wrapped) Unwrap() error { return w.cause }
