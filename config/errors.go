package config

import "github.com/ceyewan/locks/xerrors"

// ErrValidationFailed 配置校验失败
var ErrValidationFailed = xerrors.New("config: validation failed")

// IsNotFound 配置文件不存在
func IsNotFound(err error) bool {
	return xerrors.Is(err, xerrors.ErrNotFound)
}

// IsInvalidInput 配置格式无效或校验失败
func IsInvalidInput(err error) bool {
	return xerrors.Is(err, xerrors.ErrInvalidInput) || xerrors.Is(err, ErrValidationFailed)
}
