package clog

import (
	"log/slog"
	"time"

	"github.com/ceyewan/locks/xerrors"
)

// Field 是 slog.Attr 的类型别名
type Field = slog.Attr

func String(k, v string) Field { return slog.String(k, v) }

func Int(k string, v int) Field { return slog.Int(k, v) }

func Int64(k string, v int64) Field { return slog.Int64(k, v) }

func Bool(k string, v bool) Field { return slog.Bool(k, v) }

func Duration(k string, v time.Duration) Field { return slog.Duration(k, v) }

func Any(k string, v any) Field { return slog.Any(k, v) }

// Error 只输出错误消息：err_msg="..."。err 为 nil 时返回空字段，slog 会忽略它。
func Error(err error) Field {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err_msg", err.Error())
}

// ErrorWithCode 输出嵌套结构 error={msg=..., code=...}，code 取自 xerrors.CodeOf，
// 没有分类码时退化为 Error
func ErrorWithCode(err error) Field {
	code := xerrors.CodeOf(err)
	if err == nil || code == "" {
		return Error(err)
	}
	return slog.Group("error",
		slog.String("msg", err.Error()),
		slog.String("code", string(code)),
	)
}

// Resource 锁资源名
func Resource(name string) Field { return slog.String("resource", name) }

// LockID 资源名经编码后交给数据库的锁 ID
func LockID(id int64) Field { return slog.Int64("lock_id", id) }
