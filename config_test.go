package locks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultDelay, cfg.Delay)
	require.NotNil(t, cfg.Block)
	assert.True(t, *cfg.Block)
	assert.Equal(t, Exclusive, cfg.LockType)
	assert.Equal(t, Transaction, cfg.Scope)
	assert.Zero(t, cfg.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "非法锁类型", cfg: Config{Delay: time.Second, LockType: "WRITE", Scope: Session}, wantErr: ErrInvalidLockType},
		{name: "非法作用域", cfg: Config{Delay: time.Second, LockType: Shared, Scope: "GLOBAL"}, wantErr: ErrInvalidScope},
		{name: "合法", cfg: Config{Delay: time.Second, LockType: Shared, Scope: Session}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Error(t, (&Config{LockType: Shared, Scope: Session}).Validate(), "delay 为 0 应报错")
}

func TestConfig_NewRequest(t *testing.T) {
	block := false
	cfg := &Config{Block: &block, Timeout: 2 * time.Second, LockType: Shared, Scope: Session}
	cfg.SetDefaults()

	req := cfg.NewRequest("orders")
	assert.Equal(t, Request{Resource: "orders", Block: false, Timeout: 2 * time.Second, LockType: Shared, Scope: Session}, req)

	req = cfg.NewRequest("orders",
		WithBlock(true),
		WithTimeout(0),
		WithLockType(Exclusive),
		WithScope(Transaction),
	)
	assert.Equal(t, Request{Resource: "orders", Block: true, Timeout: 0, LockType: Exclusive, Scope: Transaction}, req,
		"显式传入的零值超时也应覆盖默认值")
}

func TestParseEnums(t *testing.T) {
	lt, err := ParseLockType(" shared ")
	require.NoError(t, err)
	assert.Equal(t, Shared, lt)

	_, err = ParseLockType("read")
	assert.ErrorIs(t, err, ErrInvalidLockType)

	scope, err := ParseScope("session")
	require.NoError(t, err)
	assert.Equal(t, Session, scope)

	_, err = ParseScope("process")
	assert.ErrorIs(t, err, ErrInvalidScope)

	assert.Equal(t, "TIMED_OUT", StateTimedOut.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

func TestResourceIsLockedError(t *testing.T) {
	err := NewResourceIsLocked("orders")
	assert.True(t, IsResourceLocked(err))
	assert.ErrorIs(t, err, ErrResourceIsLocked)
	assert.Equal(t, `locks: resource "orders" is locked`, err.Error())
	assert.False(t, IsResourceLocked(ErrLockNotHeld))
}
