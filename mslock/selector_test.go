package mslock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ceyewan/locks"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		lockType locks.LockType
		scope    locks.ScopeType
		custom   string
		want     Operations
		wantOK   bool
	}{
		{"exclusive transaction", locks.Exclusive, locks.Transaction, "", Operations{"Exclusive", "Transaction"}, true},
		{"shared session", locks.Shared, locks.Session, "", Operations{"Shared", "Session"}, true},
		{"custom mode wins", locks.Shared, locks.Transaction, "Update", Operations{"Update", "Transaction"}, true},
		{"intent exclusive", locks.Exclusive, locks.Session, "IntentExclusive", Operations{"IntentExclusive", "Session"}, true},
		{"invalid custom mode", locks.Exclusive, locks.Session, "Bulk Update", Operations{}, false},
		{"unknown lock type", "WRITE", locks.Session, "", Operations{}, false},
		{"unknown scope", locks.Exclusive, "STATEMENT", "", Operations{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(tt.lockType, tt.scope, tt.custom)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, int64(0), Timeout(false, 5*time.Second), "非阻塞忽略超时")
	assert.Equal(t, int64(0), Timeout(false, 0))
	assert.Equal(t, int64(-1), Timeout(true, 0), "阻塞且未设超时为无限等待")
	assert.Equal(t, int64(-1), Timeout(true, -time.Second))
	assert.Equal(t, int64(2500), Timeout(true, 2500*time.Millisecond))
	assert.Equal(t, int64(3000), Timeout(true, 3*time.Second))
}

func TestValidLockMode(t *testing.T) {
	for _, m := range []string{"Shared", "Update", "IntentShared", "IntentExclusive", "Exclusive"} {
		assert.True(t, ValidLockMode(m), m)
	}
	assert.False(t, ValidLockMode("exclusive"), "大小写敏感")
	assert.False(t, ValidLockMode(""))
}
