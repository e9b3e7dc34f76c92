package pglock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/db"
)

const ordersID = int64(-8723067750161615203) // locks.ResourceID("orders")

func newFactory(t *testing.T, cfg locks.Config) *Factory {
	t.Helper()
	f, err := New(&cfg)
	require.NoError(t, err)
	return f
}

func newSQLMock(t *testing.T) (db.Session, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return db.NewSQL(sqlDB, db.Dollar), mock
}

func boolRow(v bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"result"}).AddRow(v)
}

func TestNew_Config(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, locks.ErrConfigNil)

	_, err = New(&locks.Config{Scope: "STATEMENT"})
	assert.ErrorIs(t, err, locks.ErrInvalidScope)

	f, err := New(&locks.Config{})
	require.NoError(t, err)
	req := f.NewLock(nil, "orders").Request()
	assert.True(t, req.Block)
	assert.Equal(t, locks.Exclusive, req.LockType)
	assert.Equal(t, locks.Transaction, req.Scope)
}

func TestLock_SessionTryAndRelease(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{Scope: locks.Session})

	mock.ExpectQuery("SELECT pg_try_advisory_lock($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))
	mock.ExpectQuery("SELECT pg_advisory_unlock($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))

	lock := f.NewLock(sess, "orders", locks.WithBlock(false))
	require.NoError(t, lock.Acquire(ctx))
	assert.Equal(t, locks.StateHeld, lock.State())
	require.NoError(t, lock.Release(ctx))
}

func TestLock_SharedSession(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{Scope: locks.Session, LockType: locks.Shared})

	mock.ExpectQuery("SELECT pg_try_advisory_lock_shared($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))
	mock.ExpectQuery("SELECT pg_advisory_unlock_shared($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))

	lock := f.NewLock(sess, "orders", locks.WithBlock(false))
	require.NoError(t, lock.Acquire(ctx))
	require.NoError(t, lock.Release(ctx))
}

func TestLock_NonBlockingLocked(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{})

	mock.ExpectQuery("SELECT pg_try_advisory_xact_lock($1)").WithArgs(ordersID).WillReturnRows(boolRow(false))

	lock := f.NewLock(sess, "orders", locks.WithBlock(false))
	err := lock.Acquire(ctx)

	var locked *locks.ResourceIsLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "orders", locked.Resource)
	assert.Equal(t, locks.StateTimedOut, lock.State())
}

func TestLock_BlockingUsesNativeWait(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{})

	mock.ExpectExec("SELECT pg_advisory_xact_lock($1)").WithArgs(ordersID).WillReturnResult(sqlmock.NewResult(0, 0))

	lock := f.NewLock(sess, "orders")
	require.NoError(t, lock.Acquire(ctx))
	// 事务级锁的 Release 不发出任何语句
	require.NoError(t, lock.Release(ctx))
}

func TestLock_BlockingSharedSessionWaitsNatively(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{Scope: locks.Session, LockType: locks.Shared})

	mock.ExpectExec("SELECT pg_advisory_lock_shared($1)").WithArgs(ordersID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock_shared($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))

	lock := f.NewLock(sess, "orders")
	require.NoError(t, lock.Acquire(ctx))
	require.NoError(t, lock.Release(ctx))
}

func TestLock_BackendErrorPropagates(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{Scope: locks.Session})

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT pg_try_advisory_lock($1)").WithArgs(ordersID).WillReturnError(boom)

	err := f.NewLock(sess, "orders", locks.WithBlock(false)).Acquire(ctx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, locks.IsResourceLocked(err))
}

func TestLock_UnlockReturnsFalse(t *testing.T) {
	ctx := context.Background()
	sess, mock := newSQLMock(t)
	f := newFactory(t, locks.Config{Scope: locks.Session})

	mock.ExpectExec("SELECT pg_advisory_lock($1)").WithArgs(ordersID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pg_advisory_unlock($1)").WithArgs(ordersID).WillReturnRows(boolRow(false))

	lock := f.NewLock(sess, "orders")
	require.NoError(t, lock.Acquire(ctx))
	assert.NoError(t, lock.Release(ctx), "unlock 返回 false 只记录警告")
	assert.Equal(t, locks.StateIdle, lock.State())
}

func TestLock_NilSession(t *testing.T) {
	f := newFactory(t, locks.Config{})
	err := f.NewLock(nil, "orders").Acquire(context.Background())
	require.Error(t, err)
	assert.False(t, locks.IsResourceLocked(err))
}

func TestLock_GormSession(t *testing.T) {
	ctx := context.Background()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT pg_try_advisory_xact_lock($1)").WithArgs(ordersID).WillReturnRows(boolRow(true))
	mock.ExpectCommit()

	f := newFactory(t, locks.Config{})
	err = gdb.Transaction(func(tx *gorm.DB) error {
		locker := locks.Bind[db.Session](f, db.NewGorm(tx))
		return locks.WithLock(ctx, locker.NewLock("orders", locks.WithBlock(false)), func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// scriptedSession 按脚本返回 try 结果，统计调用次数
type scriptedSession struct {
	results []bool
	calls   int
	queries []string
}

func (s *scriptedSession) Scan(_ context.Context, dest any, query string, _ ...any) error {
	s.queries = append(s.queries, query)
	v := false
	if s.calls < len(s.results) {
		v = s.results[s.calls]
	}
	s.calls++
	*(dest.(*bool)) = v
	return nil
}

func (s *scriptedSession) Exec(_ context.Context, query string, _ ...any) error {
	s.queries = append(s.queries, query)
	return nil
}

func (s *scriptedSession) Bind(n int) string { return db.Dollar.Bind(n) }

func TestLock_BoundedBlockingPolls(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, locks.Config{Delay: 10 * time.Millisecond})

	sess := &scriptedSession{results: []bool{false, false, true}}
	lock := f.NewLock(sess, "orders", locks.WithTimeout(time.Second))
	require.NoError(t, lock.Acquire(ctx))
	assert.Equal(t, 3, sess.calls)
	for _, q := range sess.queries {
		assert.Equal(t, "SELECT pg_try_advisory_xact_lock($1)", q, "带超时的阻塞请求应轮询 try 函数")
	}
}

func TestLock_PollTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFactory(t, locks.Config{Delay: 20 * time.Millisecond})

	sess := &scriptedSession{}
	timeout := 100 * time.Millisecond
	start := time.Now()
	err := f.NewLock(sess, "orders", locks.WithTimeout(timeout)).Acquire(ctx)

	assert.ErrorIs(t, err, locks.ErrResourceIsLocked)
	assert.GreaterOrEqual(t, time.Since(start), timeout)
	assert.GreaterOrEqual(t, sess.calls, 2)
}
