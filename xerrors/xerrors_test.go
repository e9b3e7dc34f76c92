package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"), "nil 错误应返回 nil")

	base := errors.New("base error")
	err := Wrap(base, "context")
	require.Error(t, err)
	assert.Equal(t, "context: base error", err.Error())
	assert.ErrorIs(t, err, base, "应保留错误链")
	assert.Same(t, base, errors.Unwrap(err))
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "resource %s", "orders"))

	err := Wrapf(ErrInvalidInput, "resource %q", "")
	assert.Equal(t, `resource "": invalid input`, err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWithCode(t *testing.T) {
	const locked Code = "LOCKED"
	assert.Nil(t, WithCode(nil, locked))

	base := errors.New("resource busy")
	coded := WithCode(base, locked)
	assert.Equal(t, "[LOCKED] resource busy", coded.Error())
	assert.Equal(t, locked, CodeOf(coded))

	// 外层再包装，分类码依然可取
	outer := Wrap(coded, "run command")
	assert.Equal(t, locked, CodeOf(outer))
	assert.ErrorIs(t, outer, base)

	assert.Empty(t, CodeOf(base))
	assert.Equal(t, "[EMPTY]", (&CodedError{Code: "EMPTY"}).Error())
}

func TestCombine(t *testing.T) {
	a, b, c := errors.New("a"), errors.New("b"), errors.New("c")

	tests := []struct {
		name string
		errs []error
		want string
	}{
		{name: "全部为 nil", errs: []error{nil, nil}, want: ""},
		{name: "单个错误", errs: []error{nil, a}, want: "a"},
		{name: "多个错误", errs: []error{a, nil, b, c}, want: "a; b; c"},
		{name: "展开嵌套", errs: []error{Combine(a, b), c}, want: "a; b; c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Combine(tt.errs...)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	assert.Same(t, a, Combine(nil, a), "单个错误应原样返回")
}

func TestCombine_KeepsChain(t *testing.T) {
	fnErr := errors.New("fn failed")
	releaseErr := Wrap(ErrUnavailable, "release")

	err := Combine(fnErr, releaseErr)

	var multi *MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
	assert.ErrorIs(t, err, fnErr)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "no errors", (&MultiError{}).Error())
}
