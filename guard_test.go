package locks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLocker 记录产出的锁，锁行为由 fakeBackend 决定
type recordingLocker struct {
	rt        *Runtime
	backend   *fakeBackend
	resources []string
	requests  []Request
}

func newRecordingLocker(t *testing.T) *recordingLocker {
	return &recordingLocker{rt: newTestRuntime(t), backend: &fakeBackend{}}
}

func (l *recordingLocker) NewLock(resource string, opts ...LockOption) Lock {
	cfg := &Config{}
	cfg.SetDefaults()
	req := cfg.NewRequest(resource, opts...)
	l.resources = append(l.resources, resource)
	l.requests = append(l.requests, req)
	return l.rt.NewLock(l.backend, req)
}

type serviceWithField struct {
	Locker Locker
}

type serviceWithMethod struct {
	locker Locker
}

func (s *serviceWithMethod) Mutex() Locker { return s.locker }

type serviceWithPrivate struct {
	locker Locker
}

// ============================================================
// WithLock
// ============================================================

func TestWithLock(t *testing.T) {
	ctx := context.Background()
	l := newRecordingLocker(t)
	lock := l.NewLock("orders")

	ran := false
	err := WithLock(ctx, lock, func(context.Context) error {
		ran = true
		assert.Equal(t, StateHeld, lock.State(), "fn 执行期间应持有锁")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, StateIdle, lock.State())
	assert.Equal(t, 1, l.backend.releases)
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	l := newRecordingLocker(t)
	fnErr := errors.New("business failed")

	err := WithLock(context.Background(), l.NewLock("orders"), func(context.Context) error {
		return fnErr
	})
	assert.Same(t, fnErr, err, "fn 的错误应原样返回")
	assert.Equal(t, 1, l.backend.releases)
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	l := newRecordingLocker(t)
	lock := l.NewLock("orders")

	assert.PanicsWithValue(t, "boom", func() {
		_ = WithLock(context.Background(), lock, func(context.Context) error {
			panic("boom")
		})
	})
	assert.Equal(t, 1, l.backend.releases, "panic 时也应释放")
	assert.Equal(t, StateIdle, lock.State())
}

func TestWithLock_AcquireFailureSkipsFn(t *testing.T) {
	l := newRecordingLocker(t)
	l.backend.acquireErr = NewResourceIsLocked("orders")

	ran := false
	err := WithLock(context.Background(), l.NewLock("orders"), func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrResourceIsLocked)
	assert.False(t, ran)
	assert.Zero(t, l.backend.releases)
}

func TestWithLock_CombinesReleaseError(t *testing.T) {
	l := newRecordingLocker(t)
	releaseErr := errors.New("connection closed")
	fnErr := errors.New("business failed")
	l.backend.releaseErr = releaseErr

	err := WithLock(context.Background(), l.NewLock("orders"), func(context.Context) error {
		return fnErr
	})
	assert.ErrorIs(t, err, fnErr)
	assert.ErrorIs(t, err, releaseErr)
}

func TestWithLock_ReleaseIgnoresCanceledContext(t *testing.T) {
	l := newRecordingLocker(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := WithLock(ctx, l.NewLock("orders"), func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.backend.releases)
}

// ============================================================
// Guard
// ============================================================

func TestGuard_Run(t *testing.T) {
	l := newRecordingLocker(t)
	svc := &serviceWithField{Locker: l}

	guard := Locking("res_{id}", WithBlock(false), WithScope(Session))
	err := guard.Run(context.Background(), svc, map[string]any{"id": 42}, func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"res_42"}, l.resources)
	assert.False(t, l.requests[0].Block)
	assert.Equal(t, Session, l.requests[0].Scope)
	assert.Equal(t, Exclusive, l.requests[0].LockType, "未设置的选项取默认值")
}

func TestGuard_PropagatesErrors(t *testing.T) {
	l := newRecordingLocker(t)
	svc := serviceWithField{Locker: l}
	guard := Locking("res_{id}")

	fnErr := errors.New("business failed")
	err := guard.Run(context.Background(), svc, map[string]any{"id": 1}, func(context.Context) error { return fnErr })
	assert.Same(t, fnErr, err)

	l.backend.acquireErr = NewResourceIsLocked("res_1")
	err = guard.Run(context.Background(), svc, map[string]any{"id": 1}, func(context.Context) error { return nil })
	var locked *ResourceIsLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, "res_1", locked.Resource)

	err = guard.Run(context.Background(), svc, map[string]any{}, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestGuard_Attr(t *testing.T) {
	l := newRecordingLocker(t)
	svc := &serviceWithMethod{locker: l}

	base := Locking("job")
	custom := base.Attr("Mutex")

	err := custom.Run(context.Background(), svc, nil, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"job"}, l.resources)

	err = base.Run(context.Background(), svc, nil, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAttributeNotFound, "Attr 不应修改原 Guard")
}

func TestDecorate(t *testing.T) {
	l := newRecordingLocker(t)
	svc := &serviceWithField{Locker: l}

	var seen any
	pay := Decorate(Locking("order_{id}"), func(ctx context.Context, s *serviceWithField, args map[string]any) error {
		seen = args["id"]
		return nil
	})

	require.NoError(t, pay(context.Background(), svc, map[string]any{"id": int64(7)}))
	assert.Equal(t, int64(7), seen)
	assert.Equal(t, []string{"order_7"}, l.resources)
}

func TestLockerOf(t *testing.T) {
	l := newRecordingLocker(t)

	tests := []struct {
		name    string
		owner   any
		attr    string
		wantErr bool
	}{
		{name: "结构体指针字段", owner: &serviceWithField{Locker: l}, attr: "Locker"},
		{name: "结构体值字段", owner: serviceWithField{Locker: l}, attr: "Locker"},
		{name: "方法", owner: &serviceWithMethod{locker: l}, attr: "Mutex"},
		{name: "字段为 nil", owner: &serviceWithField{}, attr: "Locker", wantErr: true},
		{name: "方法返回 nil", owner: &serviceWithMethod{}, attr: "Mutex", wantErr: true},
		{name: "字段不存在", owner: &serviceWithField{Locker: l}, attr: "Missing", wantErr: true},
		{name: "未导出字段", owner: &serviceWithPrivate{locker: l}, attr: "locker", wantErr: true},
		{name: "nil 接收者", owner: nil, attr: "Locker", wantErr: true},
		{name: "nil 指针", owner: (*serviceWithField)(nil), attr: "Locker", wantErr: true},
		{name: "nil 指针方法", owner: (*serviceWithMethod)(nil), attr: "Mutex", wantErr: true},
		{name: "非结构体", owner: 42, attr: "Locker", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LockerOf(tt.owner, tt.attr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAttributeNotFound)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestBind(t *testing.T) {
	f := factoryFunc(func(conn string, resource string, opts ...LockOption) Lock {
		l := newRecordingLocker(t)
		return l.NewLock(conn+"/"+resource, opts...)
	})

	locker := Bind[string](f, "conn-1")
	lock := locker.NewLock("orders")
	assert.Equal(t, "conn-1/orders", lock.Resource())
}

type factoryFunc func(conn string, resource string, opts ...LockOption) Lock

func (f factoryFunc) NewLock(conn string, resource string, opts ...LockOption) Lock {
	return f(conn, resource, opts...)
}
