package xerrors

import "strings"

// MultiError 同一条路径上产生的多个错误，例如业务函数失败后释放锁也失败
type MultiError struct {
	Errors []error
}

// Error 按出现顺序以 "; " 连接
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// Combine 合并错误并忽略 nil，嵌套的 MultiError 会被展开。
// 只剩一个错误时原样返回，便于调用方直接比较。
func Combine(errs ...error) error {
	var flat []error
	for _, err := range errs {
		switch e := err.(type) {
		case nil:
		case *MultiError:
			flat = append(flat, e.Errors...)
		default:
			flat = append(flat, err)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return &MultiError{Errors: flat}
	}
}
