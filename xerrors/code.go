package xerrors

import "errors"

// Code 机器可读的错误分类，lockctl 据此决定退出码
type Code string

// WithCode 给 err 标注 code，err 为 nil 时返回 nil
func WithCode(err error, code Code) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带分类码的错误
type CodedError struct {
	Code  Code
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + string(e.Code) + "]"
	}
	return "[" + string(e.Code) + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error { return e.Cause }

// CodeOf 返回错误链上最外层的分类码，没有则返回空串
func CodeOf(err error) Code {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
